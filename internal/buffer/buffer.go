// Package buffer keeps a host-side GPU buffer consistent with the guest
// memory it shadows.
//
// A Buffer owns a contiguous host buffer holding the packed concatenation
// of its guest mappings, and a mirror: a virtual alias through which the
// same guest bytes can be addressed contiguously. Callers move data between
// the two with the Synchronize* methods around GPU submissions, and hand
// BufferViews to GPU commands.
//
// Buffer does not decide when synchronization is needed. Sequences that must
// be atomic with respect to other users of a buffer are bracketed with
// Lock/Unlock (directly, or through a BufferView).
package buffer

import (
	"errors"
	"fmt"
	"sync"
	"weak"

	"github.com/fxnlabs/bufsync/internal/fence"
	"github.com/fxnlabs/bufsync/internal/gpu"
	"github.com/fxnlabs/bufsync/internal/memory"
	"github.com/fxnlabs/bufsync/internal/metrics"
	"github.com/fxnlabs/bufsync/internal/trace"
	"go.uber.org/zap"
)

var ErrEmptyGuest = errors.New("guest buffer has no mappings")

type Buffer struct {
	log   *zap.Logger
	space memory.Space
	guest GuestBuffer
	size  uint64

	backing       gpu.HostBuffer
	alignedMirror *memory.Mirror
	mirror        []byte

	// mu is the exclusive lock behind Lock/Unlock/TryLock.
	mu sync.Mutex

	// stateMu guards cycle and closed. It is never held while waiting on
	// a cycle.
	stateMu sync.Mutex
	cycle   weak.Pointer[fence.Cycle]
	closed  bool

	viewsMu sync.Mutex
	views   []weak.Pointer[BufferView]
}

// New allocates the host buffer for guest, mirrors the guest mappings and
// copies the current guest contents to the host.
func New(allocator gpu.Allocator, space memory.Space, guest GuestBuffer, log *zap.Logger) (*Buffer, error) {
	if len(guest.Mappings) == 0 {
		return nil, ErrEmptyGuest
	}
	if log == nil {
		log = zap.NewNop()
	}

	size := guest.BufferSize()
	backing, err := allocator.AllocateBuffer(int(size))
	if err != nil {
		return nil, fmt.Errorf("allocate host buffer: %w", err)
	}

	alignedMirror, mirror, err := setupGuestMappings(space, guest.Mappings)
	if err != nil {
		_ = backing.Free()
		log.Error("failed to mirror guest mappings", zap.Int("mappings", len(guest.Mappings)), zap.Error(err))
		return nil, fmt.Errorf("mirror guest mappings: %w", err)
	}

	b := &Buffer{
		log:           log.Named("buffer"),
		space:         space,
		guest:         guest,
		size:          size,
		backing:       backing,
		alignedMirror: alignedMirror,
		mirror:        mirror,
	}
	b.log.Debug("buffer created", zap.Uint64("size", size), zap.Int("mappings", len(guest.Mappings)))

	b.SynchronizeHost()
	return b, nil
}

// Close synchronizes the guest one last time, waiting out any tracked
// cycle, then releases the mirror and the host buffer. It takes the buffer
// lock first so it cannot overlap a view holding it; the caller must not
// hold the lock itself. Calls after the first are no-ops.
func (b *Buffer) Close() error {
	b.Lock()
	defer b.Unlock()

	b.stateMu.Lock()
	closed := b.closed
	b.stateMu.Unlock()
	if closed {
		return nil
	}

	b.SynchronizeGuest()

	err := b.alignedMirror.Release()
	b.mirror = nil

	b.stateMu.Lock()
	b.closed = true
	if ferr := b.backing.Free(); err == nil {
		err = ferr
	}
	b.stateMu.Unlock()

	b.log.Debug("buffer closed", zap.Uint64("size", b.size))
	return err
}

func (b *Buffer) Size() uint64 {
	return b.size
}

// Backing returns the host buffer contents.
func (b *Buffer) Backing() []byte {
	return b.backing.Data()
}

func (b *Buffer) Lock() {
	b.mu.Lock()
}

func (b *Buffer) Unlock() {
	b.mu.Unlock()
}

func (b *Buffer) TryLock() bool {
	return b.mu.TryLock()
}

func (b *Buffer) trackedCycle() *fence.Cycle {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	return b.cycle.Value()
}

// WaitOnFence blocks until the tracked cycle, if any, has completed and
// stops tracking it.
func (b *Buffer) WaitOnFence() {
	defer trace.Start(b.log, "buffer.WaitOnFence").End()

	cycle := b.trackedCycle()
	if cycle == nil {
		return
	}
	cycle.Wait()
	metrics.FenceWaits.Inc()

	b.stateMu.Lock()
	if b.cycle.Value() == cycle {
		b.cycle = weak.Pointer[fence.Cycle]{}
	}
	b.stateMu.Unlock()
}

// copyToHost packs the guest mappings into the host buffer.
func (b *Buffer) copyToHost() {
	host := b.backing.Data()
	for _, mapping := range b.guest.Mappings {
		host = host[copy(host, b.space.Bytes(mapping)):]
	}
}

// copyToGuest scatters the host buffer back over the guest mappings.
func (b *Buffer) copyToGuest() {
	host := b.backing.Data()
	for _, mapping := range b.guest.Mappings {
		host = host[copy(b.space.Bytes(mapping), host):]
	}
}

// SynchronizeHost waits out the tracked cycle and copies the guest
// contents into the host buffer.
func (b *Buffer) SynchronizeHost() {
	b.WaitOnFence()

	defer trace.Start(b.log, "buffer.SynchronizeHost").End()
	b.copyToHost()
	metrics.HostSyncs.WithLabelValues(metrics.ModeImmediate).Inc()
}

// SynchronizeHostWithCycle is SynchronizeHost for a caller whose own work
// is recorded on cycle: the tracked cycle is only waited on when it is a
// different one.
func (b *Buffer) SynchronizeHostWithCycle(cycle *fence.Cycle) {
	if cycle != b.trackedCycle() {
		b.WaitOnFence()
	}

	defer trace.Start(b.log, "buffer.SynchronizeHostWithCycle").End()
	b.copyToHost()
	metrics.HostSyncs.WithLabelValues(metrics.ModeCycle).Inc()
}

// SynchronizeGuest waits out the tracked cycle and copies the host buffer
// back into guest memory.
func (b *Buffer) SynchronizeGuest() {
	b.WaitOnFence()

	defer trace.Start(b.log, "buffer.SynchronizeGuest").End()
	b.copyToGuest()
	metrics.GuestSyncs.WithLabelValues(metrics.ModeImmediate).Inc()
}

// SynchronizeGuestWithCycle schedules a copy of the host buffer back into
// guest memory for when cycle completes, and tracks cycle. Nothing is
// copied before then. A different cycle that is still tracked is waited on
// first.
func (b *Buffer) SynchronizeGuestWithCycle(cycle *fence.Cycle) {
	if cycle != b.trackedCycle() {
		b.WaitOnFence()
	}

	defer trace.Start(b.log, "buffer.SynchronizeGuestWithCycle").End()

	b.stateMu.Lock()
	b.cycle = weak.Make(cycle)
	b.stateMu.Unlock()

	// The closure keeps b reachable until the cycle runs it.
	cycle.AttachObject(func() {
		b.deferredGuestSync(cycle)
	})
}

func (b *Buffer) deferredGuestSync(cycle *fence.Cycle) {
	defer trace.Start(b.log, "buffer.DeferredGuestSync").End()

	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.cycle.Value() == cycle {
		b.cycle = weak.Pointer[fence.Cycle]{}
	}
	if b.closed {
		// Close already synchronized the guest and freed the host buffer.
		b.log.Debug("skipping deferred guest sync on closed buffer", zap.Uint64("cycle", cycle.ID()))
		return
	}
	b.copyToGuest()
	metrics.GuestSyncs.WithLabelValues(metrics.ModeDeferred).Inc()
}

// Write copies data into guest memory at offset through the mirror. The
// host buffer only sees it after the next SynchronizeHost*.
func (b *Buffer) Write(data []byte, offset uint64) {
	defer trace.Start(b.log, "buffer.Write").End()
	copy(b.mirror[offset:offset+uint64(len(data))], data)
}
