package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	pricing "main/internal/domain/entity/pricing"
	interfaces "main/internal/domain/interfaces"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coordinatorFixture struct {
	coordinator *Coordinator
	timeseries  *fakeTimeSeries
	metadata    *fakeMetadata
	cache       *fakeCache
	publisher   *fakePublisher
}

func newCoordinatorFixture(adapters []interfaces.SourceAdapter) *coordinatorFixture {
	logger := testLogger()
	timeseries := &fakeTimeSeries{}
	metadata := newFakeMetadata()
	metadata.addMapping("binance", "BTCUSDT", testAsset("BTC"))
	metadata.addMapping("kraken", "XXBTZUSD", testAsset("BTC"))
	cache := newFakeCache()
	publisher := &fakePublisher{}

	resolver := NewIdentityResolver(metadata, cache, time.Hour, logger)
	extractor := NewExtractor(time.Second, logger)
	transformer := NewTransformer(resolver, 100, logger)
	loader := NewLoader(timeseries, cache, metadata, time.Second, logger)
	aggregator := NewAggregator(timeseries, publisher, 5*time.Second, []CandleInterval{{Label: "1m", Width: time.Minute}}, logger)

	return &coordinatorFixture{
		coordinator: NewCoordinator(extractor, transformer, loader, aggregator, adapters, metadata, publisher, logger),
		timeseries:  timeseries,
		metadata:    metadata,
		cache:       cache,
		publisher:   publisher,
	}
}

func TestRunCycleCompletes(t *testing.T) {
	fx := newCoordinatorFixture([]interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", quotes: quotes("BTCUSDT")},
		&fakeAdapter{id: "kraken", quotes: quotes("XXBTZUSD")},
	})

	err := fx.coordinator.RunCycle(context.Background())

	require.NoError(t, err)
	last := fx.coordinator.LastCycle()
	require.NotNil(t, last)
	assert.Equal(t, pricing.CycleCompleted, last.Status)
	assert.Equal(t, 2, last.SourcesSucceeded)
	assert.Equal(t, 2, last.RecordsExtracted)
	assert.Equal(t, 2, last.RecordsResolved)
	assert.Equal(t, 2, last.RecordsLoaded)
	assert.Equal(t, 1, last.VWAPCount)
	require.NotNil(t, last.FinishedAt)

	assert.Len(t, fx.metadata.created, 1)
	require.Len(t, fx.metadata.finished, 1)
	assert.Equal(t, pricing.CycleCompleted, fx.metadata.finished[0].Status)
	assert.Len(t, fx.publisher.cycles, 1)
	assert.Len(t, fx.timeseries.observations, 2)
	assert.Len(t, fx.timeseries.vwap, 1)
	assert.False(t, fx.coordinator.Running())
}

func TestRunCyclePartialWhenSourceFails(t *testing.T) {
	fx := newCoordinatorFixture([]interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", quotes: quotes("BTCUSDT")},
		&fakeAdapter{id: "kraken", err: assert.AnError},
	})

	err := fx.coordinator.RunCycle(context.Background())

	require.NoError(t, err)
	last := fx.coordinator.LastCycle()
	require.NotNil(t, last)
	assert.Equal(t, pricing.CyclePartial, last.Status)
	assert.Equal(t, 1, last.SourcesFailed)
	assert.Len(t, fx.timeseries.observations, 1)
}

func TestRunCycleFailsWhenAllSourcesFail(t *testing.T) {
	fx := newCoordinatorFixture([]interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", err: assert.AnError},
		&fakeAdapter{id: "kraken", err: assert.AnError},
	})

	err := fx.coordinator.RunCycle(context.Background())

	require.Error(t, err)
	last := fx.coordinator.LastCycle()
	require.NotNil(t, last)
	assert.Equal(t, pricing.CycleFailed, last.Status)
	assert.NotEmpty(t, last.Error)
	assert.Empty(t, fx.timeseries.observations)
}

func TestRunCycleFailsOnCriticalSink(t *testing.T) {
	fx := newCoordinatorFixture([]interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", quotes: quotes("BTCUSDT")},
	})
	fx.timeseries.observationErr = assert.AnError

	err := fx.coordinator.RunCycle(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCriticalSink)
	last := fx.coordinator.LastCycle()
	require.NotNil(t, last)
	assert.Equal(t, pricing.CycleFailed, last.Status)
	assert.Empty(t, fx.timeseries.vwap, "aggregation must not run after a critical sink failure")
}

func TestRunCycleRejectsOverlap(t *testing.T) {
	fx := newCoordinatorFixture([]interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", quotes: quotes("BTCUSDT"), delay: 100 * time.Millisecond},
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fx.coordinator.RunCycle(context.Background())
		}(i)
	}
	wg.Wait()

	var busy, clean int
	for _, err := range errs {
		switch {
		case err == nil:
			clean++
		case assert.ErrorIs(t, err, ErrCycleInProgress):
			busy++
		}
	}
	assert.Equal(t, 1, clean)
	assert.Equal(t, 1, busy)
}

func TestRunCycleSurvivesBookkeepingFailures(t *testing.T) {
	fx := newCoordinatorFixture([]interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", quotes: quotes("BTCUSDT")},
	})
	fx.metadata.createErr = assert.AnError
	fx.metadata.finishErr = assert.AnError
	fx.publisher.publishErr = assert.AnError

	err := fx.coordinator.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, pricing.CycleCompleted, fx.coordinator.LastCycle().Status)
}

func TestRunCycleEndToEndMixedSources(t *testing.T) {
	logger, hook := logrustest.NewNullLogger()

	timeseries := &fakeTimeSeries{}
	metadata := newFakeMetadata()
	metadata.addMapping("binance", "BTCUSDT", testAsset("BTC"))
	metadata.addMapping("binance", "ETHUSDT", testAsset("ETH"))
	cache := newFakeCache()
	publisher := &fakePublisher{}

	resolver := NewIdentityResolver(metadata, cache, time.Hour, logger)
	extractor := NewExtractor(50*time.Millisecond, logger)
	transformer := NewTransformer(resolver, 100, logger)
	loader := NewLoader(timeseries, cache, metadata, time.Second, logger)
	aggregator := NewAggregator(timeseries, publisher, 5*time.Second, nil, logger)

	adapters := []interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", quotes: quotes("BTCUSDT", "ETHUSDT")},
		&fakeAdapter{id: "upbit", quotes: quotes("KRW-BTC"), delay: 300 * time.Millisecond},
		&fakeAdapter{id: "kraken", quotes: quotes("MYSTERYUSD")},
	}
	coordinator := NewCoordinator(extractor, transformer, loader, aggregator, adapters, metadata, publisher, logger)

	err := coordinator.RunCycle(context.Background())

	require.NoError(t, err)
	last := coordinator.LastCycle()
	require.NotNil(t, last)
	assert.Equal(t, pricing.CyclePartial, last.Status)
	assert.Equal(t, 3, last.SourcesTotal)
	assert.Equal(t, 2, last.SourcesSucceeded)
	assert.Equal(t, 1, last.SourcesFailed)
	assert.Equal(t, 3, last.RecordsExtracted)
	assert.Equal(t, 2, last.RecordsResolved)
	assert.Equal(t, 2, last.RecordsLoaded)
	assert.Equal(t, 2, last.VWAPCount)

	require.Len(t, timeseries.observations, 2)
	symbols := []string{timeseries.observations[0].Symbol, timeseries.observations[1].Symbol}
	assert.ElementsMatch(t, []string{"BTC", "ETH"}, symbols)

	assert.Len(t, cache.snapshots, 1, "cache sink must receive the batch")
	require.Len(t, metadata.touched, 1, "metadata sink must touch resolved assets")
	assert.Len(t, metadata.touched[0], 2)
	assert.EqualValues(t, 1, cache.counters["kraken:MYSTERYUSD"])
	assert.Len(t, timeseries.vwap, 2)

	// 2 of 3 records resolved stays above the curation threshold.
	for _, entry := range hook.AllEntries() {
		assert.NotContains(t, entry.Message, "low identity resolution rate")
	}
}

func TestLastCycleReturnsCopy(t *testing.T) {
	fx := newCoordinatorFixture([]interfaces.SourceAdapter{
		&fakeAdapter{id: "binance", quotes: quotes("BTCUSDT")},
	})
	require.Nil(t, fx.coordinator.LastCycle())

	require.NoError(t, fx.coordinator.RunCycle(context.Background()))

	first := fx.coordinator.LastCycle()
	first.Status = pricing.CycleFailed
	assert.Equal(t, pricing.CycleCompleted, fx.coordinator.LastCycle().Status)
}
