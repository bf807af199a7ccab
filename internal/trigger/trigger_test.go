package trigger

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"main/internal/application/service/pipeline"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	calls int32
	err   error
}

func (r *countingRunner) RunCycle(_ context.Context) error {
	atomic.AddInt32(&r.calls, 1)
	return r.err
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestTriggerFiresImmediatelyAndOnInterval(t *testing.T) {
	runner := &countingRunner{}
	tr := New(runner, 20*time.Millisecond, 0, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Millisecond)
	defer cancel()

	err := tr.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	calls := atomic.LoadInt32(&runner.calls)
	assert.GreaterOrEqual(t, calls, int32(2), "expected the immediate fire plus at least one interval")
}

func TestTriggerAbsorbsBusySignal(t *testing.T) {
	runner := &countingRunner{err: pipeline.ErrCycleInProgress}
	tr := New(runner, 10*time.Millisecond, 0, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tr.Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runner.calls), int32(2))
}

func TestTriggerStopsOnCancel(t *testing.T) {
	runner := &countingRunner{}
	tr := New(runner, time.Hour, 0, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tr.Run(ctx)
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("trigger did not stop on cancel")
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&runner.calls))
}

func TestRunnerFuncAdaptsPlainFunctions(t *testing.T) {
	calls := 0
	runner := RunnerFunc(func(_ context.Context) error {
		calls++
		return nil
	})

	assert.NoError(t, runner.RunCycle(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestNextDelayStaysWithinJitterBound(t *testing.T) {
	tr := New(&countingRunner{}, 100*time.Millisecond, 50*time.Millisecond, testLogger())

	for i := 0; i < 100; i++ {
		delay := tr.nextDelay()
		assert.GreaterOrEqual(t, delay, 100*time.Millisecond)
		assert.Less(t, delay, 150*time.Millisecond)
	}
}
