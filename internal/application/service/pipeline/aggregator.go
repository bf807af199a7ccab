package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	pricing "main/internal/domain/entity/pricing"
	interfaces "main/internal/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Aggregator derives cross-source consensus prices and candles from a
// cycle's observations and persists them alongside the raw series.
type Aggregator struct {
	timeseries interfaces.TimeSeriesRepository
	publisher  interfaces.Publisher
	window     time.Duration
	intervals  []CandleInterval
	logger     *logrus.Logger
}

// CandleInterval names one candle resolution and its bucket width.
type CandleInterval struct {
	Label string
	Width time.Duration
}

func NewAggregator(
	timeseries interfaces.TimeSeriesRepository,
	publisher interfaces.Publisher,
	window time.Duration,
	intervals []CandleInterval,
	logger *logrus.Logger,
) *Aggregator {
	return &Aggregator{
		timeseries: timeseries,
		publisher:  publisher,
		window:     window,
		intervals:  intervals,
		logger:     logger,
	}
}

// Intervals returns the configured candle intervals, one scheduled candle
// job each.
func (a *Aggregator) Intervals() []CandleInterval {
	return a.intervals
}

// AggregateCycle computes one VWAP record per asset from the cycle's
// observations, persists them, and publishes each new consensus price.
// Publish failures are absorbed. Candle building runs on its own cadence,
// not here.
func (a *Aggregator) AggregateCycle(ctx context.Context, observations []pricing.PriceObservation) ([]pricing.VWAPRecord, error) {
	records := ComputeVWAP(observations, time.Now().UTC(), a.window)
	if len(records) == 0 {
		return nil, nil
	}

	if err := a.timeseries.AddVWAPRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("persist vwap records: %w", err)
	}

	if a.publisher != nil {
		for i := range records {
			if err := a.publisher.PublishVWAP(ctx, &records[i]); err != nil {
				a.logger.WithError(err).WithField("symbol", records[i].Symbol).Warn("failed to publish vwap record")
			}
		}
	}

	a.logger.WithFields(logrus.Fields{
		"assets": len(records),
		"window": windowLabel(a.window),
	}).Info("aggregation finished")
	return records, nil
}

// BuildIntervalCandles aggregates the most recently closed bucket of one
// interval from the stored VWAP series: one candle per asset that has
// consensus prices in the bucket. Runs on the interval's own cadence; a
// bucket with no VWAP records yields no candle.
func (a *Aggregator) BuildIntervalCandles(ctx context.Context, interval CandleInterval) error {
	return a.buildIntervalCandlesAt(ctx, interval, time.Now().UTC())
}

func (a *Aggregator) buildIntervalCandlesAt(ctx context.Context, interval CandleInterval, now time.Time) error {
	bucketEnd := now.Truncate(interval.Width)
	bucketStart := bucketEnd.Add(-interval.Width)

	records, err := a.timeseries.GetVWAPBetween(ctx, bucketStart, bucketEnd)
	if err != nil {
		return fmt.Errorf("load vwap series for %s bucket: %w", interval.Label, err)
	}
	candles := BuildCandles(records, []CandleInterval{interval})
	if len(candles) == 0 {
		return nil
	}
	if err := a.timeseries.AddCandles(ctx, candles); err != nil {
		return fmt.Errorf("persist %s candles: %w", interval.Label, err)
	}

	a.logger.WithFields(logrus.Fields{
		"interval": interval.Label,
		"bucket":   bucketStart,
		"candles":  len(candles),
	}).Info("candle bucket aggregated")
	return nil
}

// BuildRawMinuteCandles aggregates the most recently closed minute of raw
// per-source observations into raw-provenance candles, covering assets
// whose VWAP series has gaps.
func (a *Aggregator) BuildRawMinuteCandles(ctx context.Context) error {
	return a.buildRawMinuteCandlesAt(ctx, time.Now().UTC())
}

func (a *Aggregator) buildRawMinuteCandlesAt(ctx context.Context, now time.Time) error {
	bucketEnd := now.Truncate(time.Minute)
	bucketStart := bucketEnd.Add(-time.Minute)

	observations, err := a.timeseries.GetObservationsBetween(ctx, bucketStart, bucketEnd)
	if err != nil {
		return fmt.Errorf("load observations for raw candle bucket: %w", err)
	}
	candles := BuildRawCandles(observations)
	if len(candles) == 0 {
		return nil
	}
	if err := a.timeseries.AddCandles(ctx, candles); err != nil {
		return fmt.Errorf("persist raw candles: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"bucket":  bucketStart,
		"candles": len(candles),
	}).Info("raw candle bucket aggregated")
	return nil
}

// ComputeVWAP folds one cycle's observations into one volume-weighted price
// per asset. Only observations with positive price and volume contribute;
// an asset whose total contributing volume is zero yields no record.
// Records come back ordered by symbol.
func ComputeVWAP(observations []pricing.PriceObservation, now time.Time, window time.Duration) []pricing.VWAPRecord {
	type accumulator struct {
		assetID     uuid.UUID
		symbol      string
		totalValue  float64
		totalVolume float64
		sources     []string
		seen        map[string]struct{}
	}

	byAsset := make(map[uuid.UUID]*accumulator)
	for _, obs := range observations {
		if obs.Price <= 0 || obs.Volume <= 0 {
			continue
		}
		acc, ok := byAsset[obs.AssetID]
		if !ok {
			acc = &accumulator{
				assetID: obs.AssetID,
				symbol:  obs.Symbol,
				seen:    make(map[string]struct{}),
			}
			byAsset[obs.AssetID] = acc
		}
		acc.totalValue += obs.Price * obs.Volume
		acc.totalVolume += obs.Volume
		if _, ok := acc.seen[obs.SourceID]; !ok {
			acc.seen[obs.SourceID] = struct{}{}
			acc.sources = append(acc.sources, obs.SourceID)
		}
	}

	windowStart := now.Truncate(window)
	label := windowLabel(window)

	records := make([]pricing.VWAPRecord, 0, len(byAsset))
	for _, acc := range byAsset {
		if acc.totalVolume <= 0 {
			continue
		}
		sort.Strings(acc.sources)
		records = append(records, pricing.VWAPRecord{
			ID:          uuid.New(),
			AssetID:     acc.assetID,
			Symbol:      acc.symbol,
			WindowStart: windowStart,
			Window:      label,
			Price:       acc.totalValue / acc.totalVolume,
			TotalVolume: acc.totalVolume,
			TotalValue:  acc.totalValue,
			SourceCount: len(acc.sources),
			Sources:     acc.sources,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Symbol < records[j].Symbol
	})
	return records
}

// windowLabel renders a window duration compactly, e.g. "5s" or "1m".
// Sub-second windows are labeled in milliseconds.
func windowLabel(window time.Duration) string {
	if window >= time.Minute && window%time.Minute == 0 {
		return fmt.Sprintf("%dm", int(window/time.Minute))
	}
	if window >= time.Second {
		return fmt.Sprintf("%ds", int(window/time.Second))
	}
	return fmt.Sprintf("%dms", int(window/time.Millisecond))
}
