package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// recoverStage runs fn inside a deferred recover so that a panicking stage
// does not crash the daemon. If a panic is caught it is converted into an
// error that includes the stage name.
func recoverStage(name string, fn func() error) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("stage %s: panic: %v", name, r)
		}
	}()
	return fn()
}

// Chain executes an ordered sequence of Stage against a single Work item.
type Chain struct {
	stages []Stage

	mu      sync.RWMutex
	timings map[string]time.Duration // latest per-stage execution times
}

// NewChain creates a new Chain from the given stages, executed in order.
func NewChain(stages ...Stage) *Chain {
	return &Chain{
		stages:  stages,
		timings: make(map[string]time.Duration),
	}
}

// Run executes each stage against work in order. A stage failure is recorded
// on work.Err/work.FailedStage and halts remaining stages; Run itself never
// returns an error, so a single bad screenshot can't abort a batch or bring
// down the watcher goroutine.
func (c *Chain) Run(ctx context.Context, work *Work) {
	for _, stage := range c.stages {
		name := stage.Name()
		start := time.Now()

		err := recoverStage(name, func() error {
			return stage.Run(ctx, work)
		})
		elapsed := time.Since(start)
		c.recordTiming(name, elapsed)

		if err != nil {
			work.Err = err
			work.FailedStage = name
			return
		}
	}
}

// Timings returns a snapshot of the latest per-stage execution times.
func (c *Chain) Timings() map[string]time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]time.Duration, len(c.timings))
	for k, v := range c.timings {
		snapshot[k] = v
	}
	return snapshot
}

// Stages returns the ordered list of stages in the chain.
func (c *Chain) Stages() []Stage {
	result := make([]Stage, len(c.stages))
	copy(result, c.stages)
	return result
}

func (c *Chain) recordTiming(name string, d time.Duration) {
	c.mu.Lock()
	c.timings[name] = d
	c.mu.Unlock()
}
