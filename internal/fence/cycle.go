// Package fence tracks completion of submitted GPU work.
package fence

import (
	"context"
	"sync"
	"sync/atomic"
)

var cycleIDs atomic.Uint64

// Cycle represents the eventual completion of one batch of submitted GPU
// work. Callbacks attached to a cycle run exactly once, after the cycle is
// signalled, and Wait only returns once they have all finished.
type Cycle struct {
	id uint64

	mu       sync.Mutex
	signaled bool
	deps     []func()

	// closed after every dependency attached before Signal has run
	done chan struct{}
}

func NewCycle() *Cycle {
	return &Cycle{
		id:   cycleIDs.Add(1),
		done: make(chan struct{}),
	}
}

// ID is unique within the process.
func (c *Cycle) ID() uint64 {
	return c.id
}

// Signal marks the work as complete and runs the attached callbacks in
// attachment order on the calling goroutine. Only the first call has an
// effect.
func (c *Cycle) Signal() {
	c.mu.Lock()
	if c.signaled {
		c.mu.Unlock()
		return
	}
	c.signaled = true
	deps := c.deps
	c.deps = nil
	c.mu.Unlock()

	defer close(c.done)
	for _, dep := range deps {
		dep()
	}
}

// AttachObject registers fn to run once the cycle completes. If the cycle
// has already been signalled fn runs immediately.
func (c *Cycle) AttachObject(fn func()) {
	c.mu.Lock()
	if c.signaled {
		c.mu.Unlock()
		fn()
		return
	}
	c.deps = append(c.deps, fn)
	c.mu.Unlock()
}

// Wait blocks until the cycle is signalled and its callbacks have run.
func (c *Cycle) Wait() {
	<-c.done
}

func (c *Cycle) WaitContext(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Poll reports whether the cycle has completed without blocking.
func (c *Cycle) Poll() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Cycle) Done() <-chan struct{} {
	return c.done
}
