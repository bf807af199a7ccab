package pipeline

import (
	"sort"
	"time"

	pricing "main/internal/domain/entity/pricing"

	"github.com/google/uuid"
)

// candlePoint is one priced, volumed moment feeding a candle bucket.
type candlePoint struct {
	assetID uuid.UUID
	symbol  string
	at      time.Time
	price   float64
	volume  float64
}

// BuildCandles buckets a VWAP series into one candle per (asset, interval,
// bucket). Candles carry vwap provenance. Output is ordered by symbol,
// then interval label, then bucket start.
func BuildCandles(records []pricing.VWAPRecord, intervals []CandleInterval) []pricing.OHLCVCandle {
	points := make([]candlePoint, 0, len(records))
	for _, rec := range records {
		points = append(points, candlePoint{
			assetID: rec.AssetID,
			symbol:  rec.Symbol,
			at:      rec.WindowStart,
			price:   rec.Price,
			volume:  rec.TotalVolume,
		})
	}
	return buildFromPoints(points, intervals, pricing.ProvenanceVWAP)
}

// BuildRawCandles buckets raw per-source observations into 1m candles with
// raw provenance, for assets whose VWAP series has gaps.
func BuildRawCandles(observations []pricing.PriceObservation) []pricing.OHLCVCandle {
	points := make([]candlePoint, 0, len(observations))
	for _, obs := range observations {
		if obs.Price <= 0 {
			continue
		}
		points = append(points, candlePoint{
			assetID: obs.AssetID,
			symbol:  obs.Symbol,
			at:      obs.ObservedAt,
			price:   obs.Price,
			volume:  obs.Volume,
		})
	}
	return buildFromPoints(points, []CandleInterval{{Label: "1m", Width: time.Minute}}, pricing.ProvenanceRaw)
}

func buildFromPoints(points []candlePoint, intervals []CandleInterval, provenance pricing.CandleProvenance) []pricing.OHLCVCandle {
	if len(points) == 0 || len(intervals) == 0 {
		return nil
	}

	type bucketKey struct {
		assetID uuid.UUID
		label   string
		start   time.Time
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].at.Before(points[j].at)
	})

	buckets := make(map[bucketKey]*pricing.OHLCVCandle)
	order := make([]bucketKey, 0)
	for _, interval := range intervals {
		for _, p := range points {
			key := bucketKey{
				assetID: p.assetID,
				label:   interval.Label,
				start:   p.at.Truncate(interval.Width),
			}
			candle, ok := buckets[key]
			if !ok {
				buckets[key] = &pricing.OHLCVCandle{
					ID:          uuid.New(),
					AssetID:     p.assetID,
					Symbol:      p.symbol,
					Interval:    interval.Label,
					BucketStart: key.start,
					Open:        p.price,
					High:        p.price,
					Low:         p.price,
					Close:       p.price,
					Volume:      p.volume,
					PointCount:  1,
					Provenance:  provenance,
				}
				order = append(order, key)
				continue
			}
			if p.price > candle.High {
				candle.High = p.price
			}
			if p.price < candle.Low {
				candle.Low = p.price
			}
			candle.Close = p.price
			candle.Volume += p.volume
			candle.PointCount++
		}
	}

	candles := make([]pricing.OHLCVCandle, 0, len(order))
	for _, key := range order {
		candles = append(candles, *buckets[key])
	}
	sort.Slice(candles, func(i, j int) bool {
		a, b := candles[i], candles[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Interval != b.Interval {
			return a.Interval < b.Interval
		}
		return a.BucketStart.Before(b.BucketStart)
	})
	return candles
}

// BuildCandle folds an already-bucketed, time-ordered price series into a
// single candle. Returns false when the series is empty.
func BuildCandle(assetID uuid.UUID, symbol, interval string, bucketStart time.Time, prices, volumes []float64, provenance pricing.CandleProvenance) (pricing.OHLCVCandle, bool) {
	if len(prices) == 0 || len(prices) != len(volumes) {
		return pricing.OHLCVCandle{}, false
	}

	candle := pricing.OHLCVCandle{
		ID:          uuid.New(),
		AssetID:     assetID,
		Symbol:      symbol,
		Interval:    interval,
		BucketStart: bucketStart,
		Open:        prices[0],
		High:        prices[0],
		Low:         prices[0],
		Close:       prices[len(prices)-1],
		PointCount:  len(prices),
		Provenance:  provenance,
	}
	for i, price := range prices {
		if price > candle.High {
			candle.High = price
		}
		if price < candle.Low {
			candle.Low = price
		}
		candle.Volume += volumes[i]
	}
	return candle, true
}
