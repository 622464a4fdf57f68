package buffer

import (
	"sync/atomic"
	"weak"

	"github.com/fxnlabs/bufsync/internal/gpu"
	"github.com/fxnlabs/bufsync/internal/metrics"
	"github.com/fxnlabs/bufsync/internal/trace"
	"go.uber.org/zap"
)

var (
	lockRetries    = metrics.ViewLockRetries.WithLabelValues(metrics.OpLock)
	tryLockRetries = metrics.ViewLockRetries.WithLabelValues(metrics.OpTryLock)
	viewHits       = metrics.ViewLookups.WithLabelValues(metrics.ResultHit)
	viewMisses     = metrics.ViewLookups.WithLabelValues(metrics.ResultMiss)
)

// BufferView is a typed window onto a Buffer for consumption by GPU
// commands.
//
// The buffer behind a view can be reassigned (see Reassign) while other
// goroutines lock the view. Lock and TryLock re-check the buffer after
// acquiring it and retry until the lock they hold is on the buffer that is
// current at that moment.
type BufferView struct {
	buffer atomic.Pointer[Buffer]
	// locked is the buffer the current holder acquired.
	locked atomic.Pointer[Buffer]

	offset uint64
	size   uint64
	format gpu.Format
}

func newBufferView(buffer *Buffer, offset, size uint64, format gpu.Format) *BufferView {
	v := &BufferView{offset: offset, size: size, format: format}
	v.buffer.Store(buffer)
	return v
}

// GetView returns a view of [offset, offset+size) interpreted as format.
// A live view with exactly the same parameters is reused; otherwise a new
// one is created and remembered weakly. Expired entries are skipped, never
// removed.
func (b *Buffer) GetView(offset, size uint64, format gpu.Format) *BufferView {
	defer trace.Start(b.log, "buffer.GetView").End()

	b.viewsMu.Lock()
	defer b.viewsMu.Unlock()

	for _, entry := range b.views {
		view := entry.Value()
		if view != nil && view.offset == offset && view.size == size && view.format == format {
			viewHits.Inc()
			return view
		}
	}

	view := newBufferView(b, offset, size, format)
	b.views = append(b.views, weak.Make(view))
	viewMisses.Inc()
	b.log.Debug("buffer view created",
		zap.Uint64("offset", offset),
		zap.Uint64("range", size),
		zap.Stringer("format", format),
		zap.Int("registry_len", len(b.views)))
	return view
}

func (v *BufferView) Offset() uint64 {
	return v.offset
}

// Range is the size of the view in bytes.
func (v *BufferView) Range() uint64 {
	return v.size
}

func (v *BufferView) Format() gpu.Format {
	return v.format
}

// Buffer returns the buffer currently backing the view.
func (v *BufferView) Buffer() *Buffer {
	return v.buffer.Load()
}

// Reassign points the view at buffer and returns the previous one. Only
// legal while this view is not locked; the usual way to guarantee that is
// to hold the previous buffer's lock across the call.
func (v *BufferView) Reassign(buffer *Buffer) *Buffer {
	return v.buffer.Swap(buffer)
}

// HostBytes returns the view's range of the current host buffer.
func (v *BufferView) HostBytes() []byte {
	end := v.offset + v.size
	return v.buffer.Load().Backing()[v.offset:end:end]
}

func (v *BufferView) Lock() {
	backing := v.buffer.Load()
	for {
		backing.Lock()

		latest := v.buffer.Load()
		if backing == latest {
			v.locked.Store(backing)
			return
		}

		backing.Unlock()
		lockRetries.Inc()
		backing = latest
	}
}

// TryLock reports whether it acquired the lock on the buffer that is
// current when it returns.
func (v *BufferView) TryLock() bool {
	backing := v.buffer.Load()
	for {
		success := backing.TryLock()

		latest := v.buffer.Load()
		if backing == latest {
			if success {
				v.locked.Store(backing)
			}
			return success
		}

		// The attempt was on a stale buffer, undo it if it took.
		if success {
			backing.Unlock()
		}
		tryLockRetries.Inc()
		backing = latest
	}
}

// Unlock releases the buffer acquired by the last successful Lock or
// TryLock. Unlocking a view that is not locked panics.
func (v *BufferView) Unlock() {
	v.locked.Swap(nil).Unlock()
}
