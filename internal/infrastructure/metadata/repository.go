package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	assets "main/internal/domain/entity/assets"
	pricing "main/internal/domain/entity/pricing"
	"main/internal/infrastructure/metadata/models"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var ErrCycleRunNotFound = errors.New("cycle run not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm connection: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() {
	if r == nil || r.db == nil {
		return
	}
	if sqlDB, err := r.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

type resolvedRow struct {
	RawCode         string
	AssetUID        uuid.UUID
	Symbol          string
	Name            string
	CoinGeckoID     string
	CoinMarketCapID string
}

// ResolveMappings performs the single batched lookup per source per cycle:
// one query regardless of how many raw codes the source produced.
func (r *Repository) ResolveMappings(ctx context.Context, sourceID string, rawCodes []string) (map[string]assets.CanonicalAsset, error) {
	result := make(map[string]assets.CanonicalAsset, len(rawCodes))
	if len(rawCodes) == 0 {
		return result, nil
	}

	var rows []resolvedRow
	err := r.db.WithContext(ctx).
		Table("symbol_mappings sm").
		Select("sm.raw_code, ca.uid AS asset_uid, ca.symbol, ca.name, ca.coingecko_id, ca.coinmarketcap_id").
		Joins("JOIN canonical_assets ca ON ca.uid = sm.asset_uid").
		Where("sm.source_id = ? AND sm.raw_code IN ? AND sm.active", sourceID, rawCodes).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("resolve mappings for %s: %w", sourceID, err)
	}

	for _, row := range rows {
		result[row.RawCode] = assets.CanonicalAsset{
			ID:              row.AssetUID,
			Symbol:          row.Symbol,
			Name:            row.Name,
			CoinGeckoID:     row.CoinGeckoID,
			CoinMarketCapID: row.CoinMarketCapID,
		}
	}
	return result, nil
}

func (r *Repository) TouchAssets(ctx context.Context, assetIDs []uuid.UUID) error {
	if len(assetIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.CanonicalAssetModel{}).
		Where("uid IN ?", assetIDs).
		Update("updated_at", time.Now().UTC()).Error
}

func (r *Repository) AddMappingAudit(ctx context.Context, sourceID, rawCode string, occurrences int64) error {
	entry := models.MappingAuditModel{
		SourceID:    sourceID,
		RawCode:     rawCode,
		Occurrences: occurrences,
		LoggedAt:    time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *Repository) CreateCycleRun(ctx context.Context, run *pricing.CycleRun) error {
	if run == nil {
		return errors.New("cycle run is nil")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	model := cycleRunToModel(run)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *Repository) FinishCycleRun(ctx context.Context, run *pricing.CycleRun) error {
	if run == nil {
		return errors.New("cycle run is nil")
	}
	if run.ID == uuid.Nil {
		return errors.New("cycle run UID is required")
	}
	model := cycleRunToModel(run)
	tx := r.db.WithContext(ctx).
		Model(&models.CycleRunModel{}).
		Where("uid = ?", run.ID).
		Updates(map[string]interface{}{
			"finished_at":       model.FinishedAt,
			"status":            model.Status,
			"sources_total":     model.SourcesTotal,
			"sources_succeeded": model.SourcesSucceeded,
			"sources_failed":    model.SourcesFailed,
			"records_extracted": model.RecordsExtracted,
			"records_resolved":  model.RecordsResolved,
			"records_loaded":    model.RecordsLoaded,
			"vwap_count":        model.VWAPCount,
			"error":             model.Error,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrCycleRunNotFound
	}
	return nil
}

// UpsertAssets and UpsertMappings back the reference-data seeder. The
// ingestion pipeline itself never calls them.

func (r *Repository) UpsertAssets(ctx context.Context, list []assets.CanonicalAsset) error {
	if len(list) == 0 {
		return nil
	}
	rows := make([]models.CanonicalAssetModel, 0, len(list))
	now := time.Now().UTC()
	for _, asset := range list {
		rows = append(rows, models.CanonicalAssetModel{
			UID:             asset.ID,
			Symbol:          asset.Symbol,
			Name:            asset.Name,
			CoinGeckoID:     asset.CoinGeckoID,
			CoinMarketCapID: asset.CoinMarketCapID,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"symbol", "name", "coingecko_id", "coinmarketcap_id", "updated_at"}),
	}).Create(&rows).Error
}

func (r *Repository) UpsertMappings(ctx context.Context, list []assets.SymbolMapping) error {
	if len(list) == 0 {
		return nil
	}
	rows := make([]models.SymbolMappingModel, 0, len(list))
	for _, mapping := range list {
		rows = append(rows, models.SymbolMappingModel{
			SourceID:     mapping.SourceID,
			RawCode:      mapping.RawCode,
			AssetUID:     mapping.AssetID,
			Confidence:   mapping.Confidence,
			LastVerified: mapping.LastVerified,
			Active:       mapping.Active,
		})
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_id"}, {Name: "raw_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"asset_uid", "confidence", "last_verified", "active"}),
	}).Create(&rows).Error
}

func cycleRunToModel(run *pricing.CycleRun) models.CycleRunModel {
	return models.CycleRunModel{
		UID:              run.ID,
		StartedAt:        run.StartedAt,
		FinishedAt:       run.FinishedAt,
		Status:           string(run.Status),
		SourcesTotal:     run.SourcesTotal,
		SourcesSucceeded: run.SourcesSucceeded,
		SourcesFailed:    run.SourcesFailed,
		RecordsExtracted: run.RecordsExtracted,
		RecordsResolved:  run.RecordsResolved,
		RecordsLoaded:    run.RecordsLoaded,
		VWAPCount:        run.VWAPCount,
		Error:            run.Error,
	}
}
