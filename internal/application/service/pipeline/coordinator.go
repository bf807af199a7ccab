package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	pricing "main/internal/domain/entity/pricing"
	interfaces "main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrCycleInProgress is returned when a run is requested while a cycle is
// already executing. Callers skip, they do not queue.
var ErrCycleInProgress = errors.New("pipeline cycle already in progress")

const (
	stateIdle int32 = iota
	stateRunning
)

// Coordinator drives one full extract-transform-load-aggregate cycle and
// guarantees at most one cycle runs at a time.
type Coordinator struct {
	extractor   *Extractor
	transformer *Transformer
	loader      *Loader
	aggregator  *Aggregator
	adapters    []interfaces.SourceAdapter
	metadata    interfaces.MetadataRepository
	publisher   interfaces.Publisher
	logger      *logrus.Logger

	state int32

	mu        sync.RWMutex
	lastCycle *pricing.CycleRun
}

func NewCoordinator(
	extractor *Extractor,
	transformer *Transformer,
	loader *Loader,
	aggregator *Aggregator,
	adapters []interfaces.SourceAdapter,
	metadata interfaces.MetadataRepository,
	publisher interfaces.Publisher,
	logger *logrus.Logger,
) *Coordinator {
	return &Coordinator{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		aggregator:  aggregator,
		adapters:    adapters,
		metadata:    metadata,
		publisher:   publisher,
		logger:      logger,
	}
}

// Running reports whether a cycle is currently executing.
func (c *Coordinator) Running() bool {
	return atomic.LoadInt32(&c.state) == stateRunning
}

// LastCycle returns a copy of the most recently finished or started cycle
// record, or nil before the first run.
func (c *Coordinator) LastCycle() *pricing.CycleRun {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastCycle == nil {
		return nil
	}
	cp := *c.lastCycle
	return &cp
}

// RunCycle executes one full pipeline cycle. A second caller arriving while
// a cycle is in flight gets ErrCycleInProgress immediately.
func (c *Coordinator) RunCycle(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&c.state, stateIdle, stateRunning) {
		return ErrCycleInProgress
	}
	defer atomic.StoreInt32(&c.state, stateIdle)

	run := &pricing.CycleRun{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Status:    pricing.CycleRunning,
	}
	c.recordCycle(run)
	if err := c.metadata.CreateCycleRun(ctx, run); err != nil {
		c.logger.WithError(err).Warn("failed to record cycle start")
	}

	err := c.runStages(ctx, run)

	finished := time.Now().UTC()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = pricing.CycleFailed
		run.Error = err.Error()
	}
	c.recordCycle(run)

	if finErr := c.metadata.FinishCycleRun(ctx, run); finErr != nil {
		c.logger.WithError(finErr).Warn("failed to record cycle finish")
	}
	if c.publisher != nil {
		if pubErr := c.publisher.PublishCycleRun(ctx, run); pubErr != nil {
			c.logger.WithError(pubErr).Warn("failed to publish cycle run")
		}
	}

	entry := c.logger.WithFields(logrus.Fields{
		"cycle":     run.ID,
		"status":    run.Status,
		"sources":   run.SourcesTotal,
		"succeeded": run.SourcesSucceeded,
		"extracted": run.RecordsExtracted,
		"resolved":  run.RecordsResolved,
		"loaded":    run.RecordsLoaded,
		"vwap":      run.VWAPCount,
		"duration":  finished.Sub(run.StartedAt).String(),
	})
	if err != nil {
		entry.WithError(err).Error("pipeline cycle failed")
		return err
	}
	entry.Info("pipeline cycle finished")
	return nil
}

func (c *Coordinator) runStages(ctx context.Context, run *pricing.CycleRun) error {
	extraction := c.extractor.Extract(ctx, c.adapters)
	run.SourcesTotal = extraction.SourcesTotal
	run.SourcesSucceeded = extraction.SourcesSucceeded
	run.SourcesFailed = extraction.SourcesFailed
	run.RecordsExtracted = extraction.TotalRecords

	if extraction.SourcesTotal > 0 && extraction.SourcesSucceeded == 0 {
		return errors.New("all sources failed")
	}

	transform := c.transformer.Transform(ctx, &extraction)
	run.RecordsResolved = transform.TotalResolved

	load := c.loader.Load(ctx, transform.Observations)
	if err := load.CriticalErr(); err != nil {
		return err
	}
	run.RecordsLoaded = load.Loaded

	records, err := c.aggregator.AggregateCycle(ctx, transform.Observations)
	if err != nil {
		return err
	}
	run.VWAPCount = len(records)

	if run.SourcesFailed > 0 {
		run.Status = pricing.CyclePartial
	} else {
		run.Status = pricing.CycleCompleted
	}
	return nil
}

func (c *Coordinator) recordCycle(run *pricing.CycleRun) {
	c.mu.Lock()
	cp := *run
	c.lastCycle = &cp
	c.mu.Unlock()
}
