package timeseries

import (
	"context"
	"errors"
	"fmt"
	"time"

	pricing "main/internal/domain/entity/pricing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() {
	if r == nil || r.pool == nil {
		return
	}
	r.pool.Close()
}

// Price observations

func (r *Repository) AddObservations(ctx context.Context, observations []pricing.PriceObservation) error {
	if len(observations) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(observations))
	for i := range observations {
		rows = append(rows, []interface{}{
			observations[i].SourceID,
			observations[i].AssetID,
			observations[i].Symbol,
			observations[i].ObservedAt,
			observations[i].Price,
			observations[i].Volume,
			observations[i].Bid,
			observations[i].Ask,
			observations[i].Spread,
			observations[i].Quality,
			observations[i].Active,
		})
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"price_observations"},
		[]string{"source_id", "asset_id", "symbol", "observed_at", "price", "volume", "bid", "ask", "spread", "quality", "active"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (r *Repository) GetObservationsBetween(ctx context.Context, from, to time.Time) ([]pricing.PriceObservation, error) {
	const query = `
		SELECT source_id, asset_id, symbol, observed_at, price, volume, bid, ask, spread, quality, active
		FROM price_observations
		WHERE observed_at >= $1 AND observed_at < $2
		ORDER BY observed_at ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var observations []pricing.PriceObservation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, obs)
	}
	return observations, rows.Err()
}

func scanObservation(row pgx.Row) (pricing.PriceObservation, error) {
	obs := pricing.PriceObservation{}
	err := row.Scan(
		&obs.SourceID,
		&obs.AssetID,
		&obs.Symbol,
		&obs.ObservedAt,
		&obs.Price,
		&obs.Volume,
		&obs.Bid,
		&obs.Ask,
		&obs.Spread,
		&obs.Quality,
		&obs.Active,
	)
	if err != nil {
		return pricing.PriceObservation{}, err
	}
	return obs, nil
}

// VWAP records

func (r *Repository) AddVWAPRecords(ctx context.Context, records []pricing.VWAPRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(records))
	for i := range records {
		if records[i].ID == uuid.Nil {
			records[i].ID = uuid.New()
		}
		rows = append(rows, []interface{}{
			records[i].ID,
			records[i].AssetID,
			records[i].Symbol,
			records[i].WindowStart,
			records[i].Window,
			records[i].Price,
			records[i].TotalVolume,
			records[i].TotalValue,
			records[i].SourceCount,
			records[i].Sources,
		})
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"vwap_records"},
		[]string{"vwap_id", "asset_id", "symbol", "window_start", "time_window", "vwap_price", "total_volume", "total_value", "source_count", "sources"},
		pgx.CopyFromRows(rows),
	)
	return err
}

const selectVWAPColumns = `
	SELECT vwap_id, asset_id, symbol, window_start, time_window, vwap_price, total_volume, total_value, source_count, sources
	FROM vwap_records`

func (r *Repository) GetVWAPBetween(ctx context.Context, from, to time.Time) ([]pricing.VWAPRecord, error) {
	const query = selectVWAPColumns + `
		WHERE window_start >= $1 AND window_start < $2
		ORDER BY window_start ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVWAP(rows)
}

func (r *Repository) GetVWAPForAsset(ctx context.Context, assetID uuid.UUID, from, to time.Time) ([]pricing.VWAPRecord, error) {
	const query = selectVWAPColumns + `
		WHERE asset_id = $1 AND window_start >= $2 AND window_start < $3
		ORDER BY window_start ASC`
	rows, err := r.pool.Query(ctx, query, assetID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectVWAP(rows)
}

func collectVWAP(rows pgx.Rows) ([]pricing.VWAPRecord, error) {
	var records []pricing.VWAPRecord
	for rows.Next() {
		record := pricing.VWAPRecord{}
		err := rows.Scan(
			&record.ID,
			&record.AssetID,
			&record.Symbol,
			&record.WindowStart,
			&record.Window,
			&record.Price,
			&record.TotalVolume,
			&record.TotalValue,
			&record.SourceCount,
			&record.Sources,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Candles

func (r *Repository) AddCandles(ctx context.Context, candles []pricing.OHLCVCandle) error {
	if len(candles) == 0 {
		return nil
	}
	rows := make([][]interface{}, 0, len(candles))
	for i := range candles {
		if candles[i].ID == uuid.Nil {
			candles[i].ID = uuid.New()
		}
		rows = append(rows, []interface{}{
			candles[i].ID,
			candles[i].AssetID,
			candles[i].Symbol,
			candles[i].Interval,
			candles[i].BucketStart,
			candles[i].Open,
			candles[i].High,
			candles[i].Low,
			candles[i].Close,
			candles[i].Volume,
			candles[i].PointCount,
			string(candles[i].Provenance),
		})
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"ohlcv_candles"},
		[]string{"candle_id", "asset_id", "symbol", "interval_label", "bucket_start", "open", "high", "low", "close", "volume", "point_count", "provenance"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (r *Repository) GetCandlesBetween(ctx context.Context, assetID uuid.UUID, interval string, from, to time.Time) ([]pricing.OHLCVCandle, error) {
	if interval == "" {
		return nil, errors.New("interval is required")
	}
	const query = `
		SELECT candle_id, asset_id, symbol, interval_label, bucket_start, open, high, low, close, volume, point_count, provenance
		FROM ohlcv_candles
		WHERE asset_id = $1 AND interval_label = $2 AND bucket_start >= $3 AND bucket_start < $4
		ORDER BY bucket_start ASC`
	rows, err := r.pool.Query(ctx, query, assetID, interval, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candles []pricing.OHLCVCandle
	for rows.Next() {
		var provenance string
		candle := pricing.OHLCVCandle{}
		err := rows.Scan(
			&candle.ID,
			&candle.AssetID,
			&candle.Symbol,
			&candle.Interval,
			&candle.BucketStart,
			&candle.Open,
			&candle.High,
			&candle.Low,
			&candle.Close,
			&candle.Volume,
			&candle.PointCount,
			&provenance,
		)
		if err != nil {
			return nil, err
		}
		candle.Provenance = pricing.CandleProvenance(provenance)
		candles = append(candles, candle)
	}
	return candles, rows.Err()
}
