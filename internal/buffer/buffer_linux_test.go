//go:build linux

package buffer

import (
	"bytes"
	"errors"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/fxnlabs/bufsync/internal/fence"
	"github.com/fxnlabs/bufsync/internal/gpu"
	"github.com/fxnlabs/bufsync/internal/memory"
	"github.com/fxnlabs/bufsync/internal/metrics"
	mockgpu "github.com/fxnlabs/bufsync/mocks/gpu"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pageSize = uint64(os.Getpagesize())

type fixture struct {
	guest   *memory.GuestMemory
	backend *gpu.CPUBackend
}

func newFixture(t *testing.T, pages int) *fixture {
	t.Helper()
	guest, err := memory.NewGuestMemory("buffer-test", pages*int(pageSize), zap.NewNop())
	require.NoError(t, err)
	backend := gpu.NewCPUBackend(zap.NewNop())
	require.NoError(t, backend.Initialize())
	t.Cleanup(func() {
		backend.Cleanup()
		guest.Close()
	})
	return &fixture{guest: guest, backend: backend}
}

func (f *fixture) newBuffer(t *testing.T, mappings ...memory.Region) *Buffer {
	t.Helper()
	b, err := New(f.backend, f.guest, GuestBuffer{Mappings: mappings}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

// randomize fills the mappings with random bytes and returns their
// concatenation.
func (f *fixture) randomize(rng *rand.Rand, mappings ...memory.Region) []byte {
	var all []byte
	for _, mapping := range mappings {
		data := f.guest.Bytes(mapping)
		rng.Read(data)
		all = append(all, data...)
	}
	return all
}

func (f *fixture) concat(mappings ...memory.Region) []byte {
	var all []byte
	for _, mapping := range mappings {
		all = append(all, f.guest.Bytes(mapping)...)
	}
	return all
}

// fragmented returns a front/middle/back layout: an unaligned front ending
// on a page boundary, whole-page middles and a short back.
func fragmented() []memory.Region {
	return []memory.Region{
		{Addr: pageSize + 123, Size: pageSize - 123},
		{Addr: 4 * pageSize, Size: pageSize},
		{Addr: 6 * pageSize, Size: 3 * pageSize},
		{Addr: 12 * pageSize, Size: 777},
	}
}

func counter(mode string, guest bool) float64 {
	if guest {
		return testutil.ToFloat64(metrics.GuestSyncs.WithLabelValues(mode))
	}
	return testutil.ToFloat64(metrics.HostSyncs.WithLabelValues(mode))
}

func TestNew(t *testing.T) {
	f := newFixture(t, 16)
	rng := rand.New(rand.NewSource(1))

	t.Run("initial host sync", func(t *testing.T) {
		mappings := fragmented()
		want := f.randomize(rng, mappings...)

		b := f.newBuffer(t, mappings...)
		assert.Equal(t, uint64(len(want)), b.Size())
		assert.Equal(t, want, b.Backing())
	})

	t.Run("empty guest", func(t *testing.T) {
		_, err := New(f.backend, f.guest, GuestBuffer{}, nil)
		assert.ErrorIs(t, err, ErrEmptyGuest)
	})

	t.Run("allocation failure", func(t *testing.T) {
		allocator := mockgpu.NewMockAllocator(t)
		allocator.EXPECT().AllocateBuffer(100).Return(nil, errors.New("out of memory"))

		_, err := New(allocator, f.guest, GuestBuffer{Mappings: []memory.Region{{Addr: 0, Size: 100}}}, nil)
		assert.ErrorContains(t, err, "out of memory")
	})

	t.Run("mirror failure frees host buffer", func(t *testing.T) {
		before := f.backend.GetDeviceInfo().AvailableMemory
		// The front mapping ends mid-page, so it cannot be aliased contiguously.
		_, err := New(f.backend, f.guest, GuestBuffer{Mappings: []memory.Region{
			{Addr: 0, Size: 100},
			{Addr: 2 * pageSize, Size: 100},
		}}, nil)
		assert.ErrorIs(t, err, memory.ErrUnaligned)
		assert.Equal(t, before, f.backend.GetDeviceInfo().AvailableMemory)
	})
}

func TestSynchronize_RoundTrip(t *testing.T) {
	f := newFixture(t, 16)
	rng := rand.New(rand.NewSource(2))

	layouts := map[string][]memory.Region{
		"single unaligned": {{Addr: 2*pageSize + 17, Size: 3*pageSize + 5}},
		"single page":      {{Addr: 0, Size: pageSize}},
		"two mappings":     {{Addr: 0, Size: pageSize}, {Addr: 3 * pageSize, Size: 1}},
		"fragmented":       fragmented(),
	}

	for name, mappings := range layouts {
		t.Run(name, func(t *testing.T) {
			want := f.randomize(rng, mappings...)
			b := f.newBuffer(t, mappings...)

			b.SynchronizeHost()
			assert.Equal(t, want, b.Backing(), "host holds the packed guest bytes")

			// Clobber the guest, then restore it from the host.
			for _, mapping := range mappings {
				clear(f.guest.Bytes(mapping))
			}
			b.SynchronizeGuest()
			assert.Equal(t, want, f.concat(mappings...))
		})
	}
}

func TestMirror_SingleMappingBounds(t *testing.T) {
	f := newFixture(t, 8)
	mapping := memory.Region{Addr: pageSize + 123, Size: 1000}
	b := f.newBuffer(t, mapping)

	assert.Len(t, b.mirror, 1000)
	assert.Equal(t, int(pageSize), b.alignedMirror.Len())
	assert.Same(t, &b.alignedMirror.Data()[123], &b.mirror[0])
}

func TestWrite(t *testing.T) {
	f := newFixture(t, 16)
	mappings := fragmented()
	b := f.newBuffer(t, mappings...)
	size := b.Size()
	require.Len(t, b.mirror, int(size))

	offsets := []uint64{0, 1, pageSize - 124, pageSize - 123, 2*pageSize - 123, size - 777, size - 1}
	for i, k := range offsets {
		value := byte(i + 1)
		b.Write([]byte{value}, k)

		assert.Equal(t, value, f.concat(mappings...)[k], "guest sees the write at once (offset %d)", k)
		assert.NotEqual(t, value, b.Backing()[k], "host only sees it after a sync (offset %d)", k)

		b.SynchronizeHost()
		assert.Equal(t, value, b.Backing()[k], "offset %d", k)
	}

	payload := bytes.Repeat([]byte{0xEE}, int(pageSize))
	b.Write(payload, 100)
	b.SynchronizeHost()
	assert.Equal(t, payload, b.Backing()[100:100+pageSize])
}

func TestWaitOnFence(t *testing.T) {
	f := newFixture(t, 4)
	b := f.newBuffer(t, memory.Region{Addr: 0, Size: 64})

	t.Run("no tracked cycle", func(t *testing.T) {
		before := testutil.ToFloat64(metrics.FenceWaits)
		b.WaitOnFence()
		b.WaitOnFence()
		assert.Equal(t, before, testutil.ToFloat64(metrics.FenceWaits))
	})

	t.Run("waits then forgets", func(t *testing.T) {
		cycle := fence.NewCycle()
		b.SynchronizeGuestWithCycle(cycle)
		assert.Same(t, cycle, b.trackedCycle())

		done := make(chan struct{})
		go func() {
			b.WaitOnFence()
			close(done)
		}()
		assertBlocked(t, done)

		cycle.Signal()
		assertDone(t, done)
		assert.Nil(t, b.trackedCycle())

		b.WaitOnFence()
	})
}

func TestSynchronizeHostWithCycle(t *testing.T) {
	f := newFixture(t, 4)
	mapping := memory.Region{Addr: 0, Size: 256}
	b := f.newBuffer(t, mapping)

	tracked := fence.NewCycle()
	b.SynchronizeGuestWithCycle(tracked)

	t.Run("same cycle never waits", func(t *testing.T) {
		waits := testutil.ToFloat64(metrics.FenceWaits)
		before := counter(metrics.ModeCycle, false)

		f.guest.Bytes(mapping)[0] = 42
		b.SynchronizeHostWithCycle(tracked)
		b.SynchronizeHostWithCycle(tracked)

		assert.Equal(t, waits, testutil.ToFloat64(metrics.FenceWaits))
		assert.Equal(t, before+2, counter(metrics.ModeCycle, false))
		assert.Equal(t, byte(42), b.Backing()[0])
		assert.False(t, tracked.Poll())
	})

	t.Run("different cycle waits for the tracked one", func(t *testing.T) {
		other := fence.NewCycle()
		done := make(chan struct{})
		go func() {
			b.SynchronizeHostWithCycle(other)
			close(done)
		}()
		assertBlocked(t, done)

		tracked.Signal()
		assertDone(t, done)
	})
}

func TestSynchronizeGuestWithCycle(t *testing.T) {
	f := newFixture(t, 4)
	mapping := memory.Region{Addr: 0, Size: 512}

	t.Run("copies once after completion", func(t *testing.T) {
		b := f.newBuffer(t, mapping)
		clear(f.guest.Bytes(mapping))
		b.SynchronizeHost()
		before := counter(metrics.ModeDeferred, true)

		copy(b.Backing(), bytes.Repeat([]byte{7}, 512))
		cycle := fence.NewCycle()
		b.SynchronizeGuestWithCycle(cycle)

		assert.Equal(t, make([]byte, 512), f.guest.Bytes(mapping), "nothing copied before completion")
		assert.Equal(t, before, counter(metrics.ModeDeferred, true))

		cycle.Signal()
		assert.Equal(t, bytes.Repeat([]byte{7}, 512), f.guest.Bytes(mapping))
		assert.Equal(t, before+1, counter(metrics.ModeDeferred, true))

		cycle.Signal()
		assert.Equal(t, before+1, counter(metrics.ModeDeferred, true))
		assert.Nil(t, b.trackedCycle())
	})

	t.Run("replacing a pending cycle waits for it", func(t *testing.T) {
		b := f.newBuffer(t, mapping)
		first, second := fence.NewCycle(), fence.NewCycle()
		b.SynchronizeGuestWithCycle(first)

		done := make(chan struct{})
		go func() {
			b.SynchronizeGuestWithCycle(second)
			close(done)
		}()
		assertBlocked(t, done)

		first.Signal()
		assertDone(t, done)
		assert.Same(t, second, b.trackedCycle())
		second.Signal()
	})

	t.Run("same cycle twice copies twice", func(t *testing.T) {
		b := f.newBuffer(t, mapping)
		before := counter(metrics.ModeDeferred, true)
		cycle := fence.NewCycle()
		b.SynchronizeGuestWithCycle(cycle)
		b.SynchronizeGuestWithCycle(cycle)
		cycle.Signal()
		assert.Equal(t, before+2, counter(metrics.ModeDeferred, true))
	})
}

func TestClose(t *testing.T) {
	f := newFixture(t, 4)
	mapping := memory.Region{Addr: 100, Size: 200}

	t.Run("releases mirror and host buffer", func(t *testing.T) {
		before := f.backend.GetDeviceInfo().AvailableMemory
		b, err := New(f.backend, f.guest, GuestBuffer{Mappings: []memory.Region{mapping}}, nil)
		require.NoError(t, err)

		require.NoError(t, b.Close())
		assert.False(t, b.alignedMirror.Valid())
		assert.Equal(t, before, f.backend.GetDeviceInfo().AvailableMemory)
		require.NoError(t, b.Close())
	})

	t.Run("final guest sync waits for pending cycle", func(t *testing.T) {
		b, err := New(f.backend, f.guest, GuestBuffer{Mappings: []memory.Region{mapping}}, nil)
		require.NoError(t, err)
		copy(b.Backing(), bytes.Repeat([]byte{9}, 200))

		cycle := fence.NewCycle()
		b.SynchronizeGuestWithCycle(cycle)

		done := make(chan struct{})
		go func() {
			assert.NoError(t, b.Close())
			close(done)
		}()
		assertBlocked(t, done)

		cycle.Signal()
		assertDone(t, done)
		assert.Equal(t, bytes.Repeat([]byte{9}, 200), f.guest.Bytes(mapping))
	})

	t.Run("waits for view lock holders", func(t *testing.T) {
		b, err := New(f.backend, f.guest, GuestBuffer{Mappings: []memory.Region{mapping}}, nil)
		require.NoError(t, err)
		view := b.GetView(0, 16, gpu.FormatR8Uint)
		view.Lock()

		done := make(chan struct{})
		go func() {
			assert.NoError(t, b.Close())
			close(done)
		}()
		assertBlocked(t, done)
		assert.True(t, b.alignedMirror.Valid(), "mirror must outlive the lock holder")

		view.Unlock()
		assertDone(t, done)
		assert.False(t, b.alignedMirror.Valid())
	})

	t.Run("deferred sync after close is skipped", func(t *testing.T) {
		b, err := New(f.backend, f.guest, GuestBuffer{Mappings: []memory.Region{mapping}}, nil)
		require.NoError(t, err)
		cycle := fence.NewCycle()
		cycle.Signal()
		require.NoError(t, b.Close())

		before := counter(metrics.ModeDeferred, true)
		b.deferredGuestSync(cycle)
		assert.Equal(t, before, counter(metrics.ModeDeferred, true))
	})
}

func assertBlocked(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
		t.Fatal("operation returned before the cycle completed")
	case <-time.After(30 * time.Millisecond):
	}
}

func assertDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("operation did not return")
	}
}
