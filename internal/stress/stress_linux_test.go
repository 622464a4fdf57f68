//go:build linux

package stress

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/fxnlabs/bufsync/internal/buffer"
	"github.com/fxnlabs/bufsync/internal/gpu"
	"github.com/fxnlabs/bufsync/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFactory(t *testing.T, buffers int) Factory {
	t.Helper()
	pageSize := os.Getpagesize()
	guest, err := memory.NewGuestMemory("stress-test", buffers*pageSize, zap.NewNop())
	require.NoError(t, err)
	manager, err := gpu.NewManager(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		manager.Cleanup()
		guest.Close()
	})

	return func(i int) (*buffer.Buffer, error) {
		region := memory.Region{Addr: uint64(i * pageSize), Size: uint64(pageSize)}
		return buffer.New(manager, guest, buffer.GuestBuffer{Mappings: []memory.Region{region}}, zap.NewNop())
	}
}

func TestRun(t *testing.T) {
	opts := Options{Swaps: 24, Lockers: 6, Iterations: 300}
	report, err := Run(context.Background(), opts, newFactory(t, opts.Swaps+1), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 24, report.Swaps)
	assert.Zero(t, report.Violations)
	assert.Equal(t, int64(3*300), report.Locks)
	assert.Equal(t, int64(3*300), report.TryLocks)
	assert.LessOrEqual(t, report.TryLockFails, report.TryLocks)
	assert.Positive(t, report.LockLatency.Max)
	assert.LessOrEqual(t, report.LockLatency.P50, report.LockLatency.P99)
	assert.LessOrEqual(t, report.LockLatency.P99, report.LockLatency.Max)
}

func TestRun_NoSwaps(t *testing.T) {
	report, err := Run(context.Background(), Options{Lockers: 2, Iterations: 10}, newFactory(t, 1), nil)
	require.NoError(t, err)
	assert.Zero(t, report.Swaps)
	assert.Equal(t, int64(10), report.Locks)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Swaps: 4, Lockers: 2, Iterations: 10}, newFactory(t, 5), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_FactoryError(t *testing.T) {
	calls := 0
	factory := newFactory(t, 2)
	_, err := Run(context.Background(), Options{Swaps: 3, Lockers: 1, Iterations: 1}, func(i int) (*buffer.Buffer, error) {
		calls++
		if i == 2 {
			return nil, errors.New("allocator exhausted")
		}
		return factory(i)
	}, nil)
	assert.ErrorContains(t, err, "allocator exhausted")
	assert.Equal(t, 3, calls)
}
