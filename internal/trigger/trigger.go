package trigger

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"main/internal/application/service/pipeline"

	"github.com/sirupsen/logrus"
)

// CycleRunner runs one pipeline cycle, refusing overlap with
// pipeline.ErrCycleInProgress.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// RunnerFunc adapts a plain function, such as a scheduled candle job, to
// CycleRunner.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) RunCycle(ctx context.Context) error {
	return f(ctx)
}

// Trigger fires pipeline cycles on a fixed interval with a small random
// jitter. An interval that elapses while a cycle is still running is
// skipped, never queued.
type Trigger struct {
	coordinator CycleRunner
	interval    time.Duration
	jitter      time.Duration
	logger      *logrus.Logger
}

func New(coordinator CycleRunner, interval, jitter time.Duration, logger *logrus.Logger) *Trigger {
	return &Trigger{
		coordinator: coordinator,
		interval:    interval,
		jitter:      jitter,
		logger:      logger,
	}
}

// Run blocks until ctx is cancelled, firing one cycle per interval. The
// first cycle fires immediately.
func (t *Trigger) Run(ctx context.Context) error {
	t.fire(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(t.nextDelay()):
			t.fire(ctx)
		}
	}
}

func (t *Trigger) fire(ctx context.Context) {
	err := t.coordinator.RunCycle(ctx)
	if errors.Is(err, pipeline.ErrCycleInProgress) {
		t.logger.Warn("previous cycle still running, skipping this interval")
		return
	}
	if err != nil {
		t.logger.WithError(err).Error("scheduled cycle failed")
	}
}

func (t *Trigger) nextDelay() time.Duration {
	delay := t.interval
	if t.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(t.jitter)))
	}
	return delay
}
