package pipeline

import (
	"context"
	"time"

	assets "main/internal/domain/entity/assets"
	interfaces "main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// auditEvery is the unmapped-occurrence stride that earns a durable audit
// entry: a curation signal, not a pipeline failure.
const auditEvery = 100

// IdentityResolver maps source-local instrument codes to canonical assets
// in batch, and tracks the codes that have no active mapping.
type IdentityResolver struct {
	metadata    interfaces.MetadataRepository
	cache       interfaces.Cache
	unmappedTTL time.Duration
	logger      *logrus.Logger
}

func NewIdentityResolver(metadata interfaces.MetadataRepository, cache interfaces.Cache, unmappedTTL time.Duration, logger *logrus.Logger) *IdentityResolver {
	return &IdentityResolver{
		metadata:    metadata,
		cache:       cache,
		unmappedTTL: unmappedTTL,
		logger:      logger,
	}
}

// ResolveBatch performs one batched mapping lookup for a source's raw codes.
// Codes without an active mapping are absent from the result, not errors.
func (r *IdentityResolver) ResolveBatch(ctx context.Context, sourceID string, rawCodes []string) (map[string]assets.CanonicalAsset, error) {
	if len(rawCodes) == 0 {
		return map[string]assets.CanonicalAsset{}, nil
	}

	unique := make([]string, 0, len(rawCodes))
	seen := make(map[string]struct{}, len(rawCodes))
	for _, code := range rawCodes {
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		unique = append(unique, code)
	}

	return r.metadata.ResolveMappings(ctx, sourceID, unique)
}

// TrackUnmapped counts one resolution miss. The first occurrence in a TTL
// window is logged as new; every 100th lands a durable audit entry.
// Tracking failures are logged and swallowed: accounting must never take
// down the cycle.
func (r *IdentityResolver) TrackUnmapped(ctx context.Context, sourceID, rawCode string) {
	count, err := r.cache.IncrUnmapped(ctx, sourceID, rawCode, r.unmappedTTL)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"source":   sourceID,
			"raw_code": rawCode,
		}).Warn("failed to count unmapped code")
		return
	}

	if count == 1 {
		r.logger.WithFields(logrus.Fields{
			"source":   sourceID,
			"raw_code": rawCode,
		}).Warn("new unmapped instrument code")
	}

	if count%auditEvery == 0 {
		if err := r.metadata.AddMappingAudit(ctx, sourceID, rawCode, count); err != nil {
			r.logger.WithError(err).WithFields(logrus.Fields{
				"source":   sourceID,
				"raw_code": rawCode,
				"count":    count,
			}).Warn("failed to write mapping audit entry")
		}
	}
}
