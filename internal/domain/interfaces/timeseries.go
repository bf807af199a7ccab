package interfaces

import (
	"context"
	"time"

	pricing "main/internal/domain/entity/pricing"

	"github.com/google/uuid"
)

// TimeSeriesRepository is the row-oriented time-series store. It is the
// pipeline's critical sink: observation writes are the record of truth.
type TimeSeriesRepository interface {
	AddObservations(ctx context.Context, observations []pricing.PriceObservation) error
	GetObservationsBetween(ctx context.Context, from, to time.Time) ([]pricing.PriceObservation, error)

	AddVWAPRecords(ctx context.Context, records []pricing.VWAPRecord) error
	GetVWAPBetween(ctx context.Context, from, to time.Time) ([]pricing.VWAPRecord, error)
	GetVWAPForAsset(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]pricing.VWAPRecord, error)

	AddCandles(ctx context.Context, candles []pricing.OHLCVCandle) error
	GetCandlesBetween(ctx context.Context, assetID uuid.UUID, interval string, from, to time.Time) ([]pricing.OHLCVCandle, error)

	Close()
}
