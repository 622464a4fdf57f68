// Package stress races buffer reassignment against view lockers and checks
// that every lock a view hands out is on its current buffer.
package stress

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxnlabs/bufsync/internal/buffer"
	"github.com/fxnlabs/bufsync/internal/gpu"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

type Options struct {
	// Swaps is the number of times the view's buffer is reassigned.
	Swaps int
	// Lockers is the number of goroutines locking the view; odd ones use
	// TryLock.
	Lockers int
	// Iterations bounds the lock attempts per locker.
	Iterations int
}

// Factory creates the i-th buffer of a run.
type Factory func(i int) (*buffer.Buffer, error)

type Latency struct {
	Mean   time.Duration
	StdDev time.Duration
	P50    time.Duration
	P99    time.Duration
	Max    time.Duration
}

type Report struct {
	Swaps        int
	Locks        int64
	TryLocks     int64
	TryLockFails int64
	Violations   int64
	LockLatency  Latency
	Elapsed      time.Duration
}

var ErrViolation = errors.New("lock held on a buffer that was not current")

// Run creates Swaps+1 buffers, views the first one and reassigns the view
// through the rest while the lockers run. Every buffer is closed before Run
// returns. A non-zero Report.Violations comes with ErrViolation.
func Run(ctx context.Context, opts Options, factory Factory, log *zap.Logger) (Report, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("stress")
	if opts.Lockers <= 0 || opts.Iterations <= 0 {
		return Report{}, fmt.Errorf("stress needs at least one locker and iteration, got %d/%d", opts.Lockers, opts.Iterations)
	}

	buffers := make([]*buffer.Buffer, 0, opts.Swaps+1)
	defer func() {
		for _, b := range buffers {
			if err := b.Close(); err != nil {
				log.Warn("failed to close buffer", zap.Error(err))
			}
		}
	}()
	for i := 0; i <= opts.Swaps; i++ {
		b, err := factory(i)
		if err != nil {
			return Report{}, fmt.Errorf("create buffer %d: %w", i, err)
		}
		buffers = append(buffers, b)
	}

	r := &run{
		view:    buffers[0].GetView(0, buffers[0].Size(), gpu.FormatR8Uint),
		swapLog: []*buffer.Buffer{buffers[0]},
	}
	log.Info("stress run started", zap.Int("swaps", opts.Swaps), zap.Int("lockers", opts.Lockers), zap.Int("iterations", opts.Iterations))

	start := time.Now()

	latencies := make([][]float64, opts.Lockers)
	var wg sync.WaitGroup
	for i := 0; i < opts.Lockers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			latencies[i] = r.lockLoop(ctx, i%2 == 1, opts.Iterations)
		}(i)
	}

	swapped := r.swapLoop(ctx, buffers[1:])
	wg.Wait()

	report := Report{
		Swaps:        swapped,
		Locks:        r.locks.Load(),
		TryLocks:     r.tryLocks.Load(),
		TryLockFails: r.tryLockFails.Load(),
		Violations:   r.violations.Load(),
		LockLatency:  summarize(latencies),
		Elapsed:      time.Since(start),
	}
	log.Info("stress run finished",
		zap.Int("swaps", report.Swaps),
		zap.Int64("locks", report.Locks),
		zap.Int64("try_locks", report.TryLocks),
		zap.Int64("violations", report.Violations),
		zap.Duration("elapsed", report.Elapsed))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if report.Violations > 0 {
		return report, fmt.Errorf("%w: %d violations", ErrViolation, report.Violations)
	}
	return report, nil
}

type run struct {
	view *buffer.BufferView

	logMu   sync.Mutex
	swapLog []*buffer.Buffer

	locks, tryLocks, tryLockFails, violations atomic.Int64
}

func (r *run) latestSwap() *buffer.Buffer {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	return r.swapLog[len(r.swapLog)-1]
}

// swapLoop reassigns the view to each of next in turn. The old buffer is
// held across the reassignment so no view lock can be outstanding on it.
func (r *run) swapLoop(ctx context.Context, next []*buffer.Buffer) int {
	for i, b := range next {
		if ctx.Err() != nil {
			return i
		}
		old := r.view.Buffer()
		old.Lock()
		r.logMu.Lock()
		r.swapLog = append(r.swapLog, b)
		r.logMu.Unlock()
		r.view.Reassign(b)
		old.Unlock()
		runtime.Gosched()
	}
	return len(next)
}

// lockLoop returns the latency of each successful acquisition in seconds.
func (r *run) lockLoop(ctx context.Context, useTry bool, iterations int) []float64 {
	latencies := make([]float64, 0, iterations)
	for i := 0; i < iterations && ctx.Err() == nil; i++ {
		start := time.Now()
		if useTry {
			r.tryLocks.Add(1)
			if !r.view.TryLock() {
				r.tryLockFails.Add(1)
				continue
			}
		} else {
			r.locks.Add(1)
			r.view.Lock()
		}
		latencies = append(latencies, time.Since(start).Seconds())

		// The swapper needs the held buffer to move the view, so both must
		// still agree with the newest swap.
		held := r.view.Buffer()
		if held != r.latestSwap() {
			r.violations.Add(1)
		}
		if held.TryLock() {
			held.Unlock()
			r.violations.Add(1)
		}
		r.view.Unlock()
	}
	return latencies
}

func summarize(perLocker [][]float64) Latency {
	var all []float64
	for _, l := range perLocker {
		all = append(all, l...)
	}
	if len(all) == 0 {
		return Latency{}
	}
	sort.Float64s(all)
	mean, std := stat.MeanStdDev(all, nil)
	if math.IsNaN(std) {
		std = 0
	}
	seconds := func(s float64) time.Duration {
		return time.Duration(s * float64(time.Second))
	}
	return Latency{
		Mean:   seconds(mean),
		StdDev: seconds(std),
		P50:    seconds(stat.Quantile(0.5, stat.Empirical, all, nil)),
		P99:    seconds(stat.Quantile(0.99, stat.Empirical, all, nil)),
		Max:    seconds(all[len(all)-1]),
	}
}
