package interfaces

import (
	"context"

	assets "main/internal/domain/entity/assets"
	pricing "main/internal/domain/entity/pricing"

	"github.com/google/uuid"
)

// MetadataRepository is the relational metadata store. The pipeline reads
// symbol mappings and canonical assets; write access to mappings is reserved
// for the external mapping-maintenance job.
type MetadataRepository interface {
	// ResolveMappings returns the active mapping target for every raw code
	// that has one, keyed by raw code. Codes without an active mapping are
	// simply absent from the result.
	ResolveMappings(ctx context.Context, sourceID string, rawCodes []string) (map[string]assets.CanonicalAsset, error)

	// TouchAssets bumps the last-updated timestamp of the given assets.
	TouchAssets(ctx context.Context, assetIDs []uuid.UUID) error

	// AddMappingAudit writes a durable audit entry for a repeatedly
	// unmapped (source, code) pair, as a signal for manual curation.
	AddMappingAudit(ctx context.Context, sourceID, rawCode string, occurrences int64) error

	CreateCycleRun(ctx context.Context, run *pricing.CycleRun) error
	FinishCycleRun(ctx context.Context, run *pricing.CycleRun) error

	Close()
}
