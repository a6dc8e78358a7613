package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_TicksUntilCanceled(t *testing.T) {
	var calls int32
	s := New(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 55*time.Millisecond)
	defer cancel()

	s.Run(ctx)

	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Fatalf("expected at least 2 ticks, got %d", n)
	}
}

func TestScheduler_SurvivesRunErrors(t *testing.T) {
	var calls int32
	s := New(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	s.Run(ctx) // must not panic despite every tick erroring

	if n := atomic.LoadInt32(&calls); n < 2 {
		t.Fatalf("expected at least 2 ticks despite errors, got %d", n)
	}
}
