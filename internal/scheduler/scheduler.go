// Package scheduler drives the matching cycle on a fixed interval. The
// overlap-safety itself lives in the matching orchestrator's distributed
// lock; this package only owns the clock.
package scheduler

import (
	"context"
	"log"
	"time"
)

// Scheduler ticks a matching cycle on a fixed interval.
type Scheduler struct {
	run      func(ctx context.Context) error
	interval time.Duration
}

// New wires a Scheduler around a run function (typically
// matching.Orchestrator.RunCycle wrapped to discard its summary).
func New(run func(ctx context.Context) error, interval time.Duration) *Scheduler {
	return &Scheduler{run: run, interval: interval}
}

// Run blocks, invoking the cycle runner every interval until ctx is
// canceled. A cycle that errors is logged, not fatal — the next tick
// tries again.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.run(ctx); err != nil {
				log.Printf("[Scheduler] matching cycle failed: %v", err)
			}
		}
	}
}
