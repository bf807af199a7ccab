package interfaces

import (
	"context"
	"time"

	pricing "main/internal/domain/entity/pricing"
)

// Cache is the low-latency read path. Never the system of record: every
// write carries a TTL and failures are non-critical to the pipeline.
type Cache interface {
	// StoreSnapshots writes a per-(asset,source) snapshot and refreshes the
	// per-asset hash of per-source snapshots.
	StoreSnapshots(ctx context.Context, observations []pricing.PriceObservation) error

	// GetMarketSnapshots returns the cached per-source snapshots for one
	// asset symbol, keyed by source id.
	GetMarketSnapshots(ctx context.Context, symbol string) (map[string]pricing.PriceObservation, error)

	// IncrUnmapped bumps the miss counter for an unmapped (source, code)
	// pair, arming the TTL on first occurrence, and returns the new count.
	IncrUnmapped(ctx context.Context, sourceID, rawCode string, ttl time.Duration) (int64, error)

	Close() error
}
