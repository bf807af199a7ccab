package pipeline

import (
	"testing"
	"time"

	pricing "main/internal/domain/entity/pricing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vwapRecord(symbol string, at time.Time, price, volume float64) pricing.VWAPRecord {
	asset := testAsset(symbol)
	return pricing.VWAPRecord{
		AssetID:     asset.ID,
		Symbol:      symbol,
		WindowStart: at,
		Window:      "5s",
		Price:       price,
		TotalVolume: volume,
	}
}

func TestBuildCandleFoldsSeries(t *testing.T) {
	asset := testAsset("BTC")
	bucket := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	candle, ok := BuildCandle(asset.ID, "BTC", "1m", bucket,
		[]float64{100, 110, 90, 105},
		[]float64{1, 2, 3, 4},
		pricing.ProvenanceVWAP,
	)

	require.True(t, ok)
	assert.InDelta(t, 100, candle.Open, 1e-9)
	assert.InDelta(t, 110, candle.High, 1e-9)
	assert.InDelta(t, 90, candle.Low, 1e-9)
	assert.InDelta(t, 105, candle.Close, 1e-9)
	assert.InDelta(t, 10, candle.Volume, 1e-9)
	assert.Equal(t, 4, candle.PointCount)
	assert.Equal(t, pricing.ProvenanceVWAP, candle.Provenance)
}

func TestBuildCandleEmptySeries(t *testing.T) {
	_, ok := BuildCandle(testAsset("BTC").ID, "BTC", "1m", time.Now(), nil, nil, pricing.ProvenanceVWAP)
	assert.False(t, ok)
}

func TestBuildCandlesBucketsByInterval(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	records := []pricing.VWAPRecord{
		vwapRecord("BTC", base.Add(10*time.Second), 100, 1),
		vwapRecord("BTC", base.Add(30*time.Second), 110, 2),
		vwapRecord("BTC", base.Add(70*time.Second), 90, 3),
	}
	intervals := []CandleInterval{
		{Label: "1m", Width: time.Minute},
		{Label: "5m", Width: 5 * time.Minute},
	}

	candles := BuildCandles(records, intervals)

	require.Len(t, candles, 3)

	first := candles[0]
	assert.Equal(t, "1m", first.Interval)
	assert.Equal(t, base, first.BucketStart)
	assert.InDelta(t, 100, first.Open, 1e-9)
	assert.InDelta(t, 110, first.Close, 1e-9)
	assert.Equal(t, 2, first.PointCount)

	second := candles[1]
	assert.Equal(t, "1m", second.Interval)
	assert.Equal(t, base.Add(time.Minute), second.BucketStart)
	assert.InDelta(t, 90, second.Open, 1e-9)
	assert.Equal(t, 1, second.PointCount)

	third := candles[2]
	assert.Equal(t, "5m", third.Interval)
	assert.Equal(t, base, third.BucketStart)
	assert.InDelta(t, 100, third.Open, 1e-9)
	assert.InDelta(t, 110, third.High, 1e-9)
	assert.InDelta(t, 90, third.Low, 1e-9)
	assert.InDelta(t, 90, third.Close, 1e-9)
	assert.InDelta(t, 6, third.Volume, 1e-9)
	assert.Equal(t, 3, third.PointCount)
	assert.Equal(t, pricing.ProvenanceVWAP, third.Provenance)
}

func TestBuildCandlesOrdersDeterministically(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	records := []pricing.VWAPRecord{
		vwapRecord("ETH", base, 3000, 1),
		vwapRecord("BTC", base.Add(time.Minute), 50000, 1),
		vwapRecord("BTC", base, 49000, 1),
	}

	candles := BuildCandles(records, []CandleInterval{{Label: "1m", Width: time.Minute}})

	require.Len(t, candles, 3)
	assert.Equal(t, "BTC", candles[0].Symbol)
	assert.Equal(t, base, candles[0].BucketStart)
	assert.Equal(t, "BTC", candles[1].Symbol)
	assert.Equal(t, base.Add(time.Minute), candles[1].BucketStart)
	assert.Equal(t, "ETH", candles[2].Symbol)
}

func TestBuildRawCandlesSkipsNonPositivePrices(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 30, 0, time.UTC)
	observations := []pricing.PriceObservation{
		observation("BTC", "binance", 100, 1),
		observation("BTC", "kraken", 0, 5),
	}
	observations[0].ObservedAt = base
	observations[1].ObservedAt = base

	candles := BuildRawCandles(observations)

	require.Len(t, candles, 1)
	assert.Equal(t, pricing.ProvenanceRaw, candles[0].Provenance)
	assert.Equal(t, "1m", candles[0].Interval)
	assert.Equal(t, base.Truncate(time.Minute), candles[0].BucketStart)
	assert.Equal(t, 1, candles[0].PointCount)
}

func TestBuildCandlesEmptyInput(t *testing.T) {
	assert.Empty(t, BuildCandles(nil, []CandleInterval{{Label: "1m", Width: time.Minute}}))
	assert.Empty(t, BuildCandles([]pricing.VWAPRecord{vwapRecord("BTC", time.Now(), 1, 1)}, nil))
}
