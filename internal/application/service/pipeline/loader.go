package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pricing "main/internal/domain/entity/pricing"
	interfaces "main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrCriticalSink marks a cycle whose record of truth was not persisted.
var ErrCriticalSink = errors.New("critical sink failed")

// ErrSinkTimeout marks a sink write that missed the per-sink deadline.
var ErrSinkTimeout = errors.New("sink timed out")

// Loader fans the cycle's observations out to every persistence sink in
// parallel. The time-series store is the critical sink: its failure fails
// the cycle. Cache and metadata failures are logged and absorbed.
type Loader struct {
	timeseries interfaces.TimeSeriesRepository
	cache      interfaces.Cache
	metadata   interfaces.MetadataRepository
	timeout    time.Duration
	logger     *logrus.Logger
}

func NewLoader(
	timeseries interfaces.TimeSeriesRepository,
	cache interfaces.Cache,
	metadata interfaces.MetadataRepository,
	timeout time.Duration,
	logger *logrus.Logger,
) *Loader {
	return &Loader{
		timeseries: timeseries,
		cache:      cache,
		metadata:   metadata,
		timeout:    timeout,
		logger:     logger,
	}
}

// Load writes one cycle's observations to all sinks concurrently and waits
// for every sink to settle before reporting. An empty batch is a no-op.
func (l *Loader) Load(ctx context.Context, observations []pricing.PriceObservation) LoadReport {
	report := LoadReport{}
	if len(observations) == 0 {
		return report
	}
	report.Loaded = len(observations)

	sinks := []struct {
		name     string
		critical bool
		write    func(context.Context) error
	}{
		{
			name:     "timeseries",
			critical: true,
			write: func(ctx context.Context) error {
				return l.timeseries.AddObservations(ctx, observations)
			},
		},
		{
			name: "cache",
			write: func(ctx context.Context) error {
				return l.cache.StoreSnapshots(ctx, observations)
			},
		},
		{
			name: "metadata",
			write: func(ctx context.Context) error {
				return l.metadata.TouchAssets(ctx, assetIDs(observations))
			},
		},
	}

	report.Sinks = make([]SinkResult, len(sinks))
	var wg sync.WaitGroup
	for i, sink := range sinks {
		wg.Add(1)
		go func(i int, name string, critical bool, write func(context.Context) error) {
			defer wg.Done()
			report.Sinks[i] = l.writeSink(ctx, name, critical, write)
		}(i, sink.name, sink.critical, sink.write)
	}
	wg.Wait()

	for _, sink := range report.Sinks {
		if sink.Err == nil {
			continue
		}
		entry := l.logger.WithError(sink.Err).WithFields(logrus.Fields{
			"sink":     sink.Name,
			"duration": sink.Duration.String(),
		})
		if sink.Critical {
			entry.Error("critical sink write failed")
		} else {
			entry.Warn("non-critical sink write failed")
		}
	}
	return report
}

// writeSink races one sink write against the per-sink deadline. A late
// write is abandoned, not force-killed; its result is dropped.
func (l *Loader) writeSink(ctx context.Context, name string, critical bool, write func(context.Context) error) SinkResult {
	start := time.Now()
	errCh := make(chan error, 1)

	go func() {
		errCh <- write(ctx)
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	result := SinkResult{Name: name, Critical: critical}
	select {
	case err := <-errCh:
		result.Duration = time.Since(start)
		if err != nil {
			result.Err = fmt.Errorf("write %s: %w", name, err)
		}
	case <-timer.C:
		result.Duration = time.Since(start)
		result.Err = fmt.Errorf("%w after %s", ErrSinkTimeout, l.timeout)
	}
	return result
}

func assetIDs(observations []pricing.PriceObservation) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(observations))
	ids := make([]uuid.UUID, 0, len(observations))
	for _, obs := range observations {
		if _, ok := seen[obs.AssetID]; ok {
			continue
		}
		seen[obs.AssetID] = struct{}{}
		ids = append(ids, obs.AssetID)
	}
	return ids
}
