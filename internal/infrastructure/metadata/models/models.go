package models

import (
	"time"

	"github.com/google/uuid"
)

// CanonicalAssetModel mirrors the canonical_assets table owned by the
// external mapping-maintenance job.
type CanonicalAssetModel struct {
	UID             uuid.UUID `gorm:"primaryKey;column:uid;type:uuid"`
	Symbol          string    `gorm:"column:symbol;type:varchar(50);not null;index"`
	Name            string    `gorm:"column:name;type:varchar(255);not null"`
	CoinGeckoID     string    `gorm:"column:coingecko_id;type:varchar(255)"`
	CoinMarketCapID string    `gorm:"column:coinmarketcap_id;type:varchar(255)"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamp;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"column:updated_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (CanonicalAssetModel) TableName() string { return "canonical_assets" }

// SymbolMappingModel mirrors the symbol_mappings table. A partial unique
// index enforces at most one active mapping per (source_id, raw_code).
type SymbolMappingModel struct {
	ID           int64     `gorm:"primaryKey;column:id;autoIncrement"`
	SourceID     string    `gorm:"column:source_id;type:varchar(50);not null;index:idx_mapping_source_code"`
	RawCode      string    `gorm:"column:raw_code;type:varchar(100);not null;index:idx_mapping_source_code"`
	AssetUID     uuid.UUID `gorm:"column:asset_uid;type:uuid;not null"`
	Confidence   float64   `gorm:"column:confidence;type:numeric(4,3);not null"`
	LastVerified time.Time `gorm:"column:last_verified;type:timestamp"`
	Active       bool      `gorm:"column:active;not null;default:true"`
}

func (SymbolMappingModel) TableName() string { return "symbol_mappings" }

// CycleRunModel mirrors the cycle_runs observability table.
type CycleRunModel struct {
	UID              uuid.UUID  `gorm:"primaryKey;column:uid;type:uuid"`
	StartedAt        time.Time  `gorm:"column:started_at;type:timestamp;not null"`
	FinishedAt       *time.Time `gorm:"column:finished_at;type:timestamp"`
	Status           string     `gorm:"column:status;type:varchar(20);not null"`
	SourcesTotal     int        `gorm:"column:sources_total"`
	SourcesSucceeded int        `gorm:"column:sources_succeeded"`
	SourcesFailed    int        `gorm:"column:sources_failed"`
	RecordsExtracted int        `gorm:"column:records_extracted"`
	RecordsResolved  int        `gorm:"column:records_resolved"`
	RecordsLoaded    int        `gorm:"column:records_loaded"`
	VWAPCount        int        `gorm:"column:vwap_count"`
	Error            string     `gorm:"column:error;type:text"`
}

func (CycleRunModel) TableName() string { return "cycle_runs" }

// MappingAuditModel mirrors mapping_audit_logs, the durable trail of
// repeatedly unmapped codes surfaced for manual curation.
type MappingAuditModel struct {
	ID          int64     `gorm:"primaryKey;column:id;autoIncrement"`
	SourceID    string    `gorm:"column:source_id;type:varchar(50);not null"`
	RawCode     string    `gorm:"column:raw_code;type:varchar(100);not null"`
	Occurrences int64     `gorm:"column:occurrences;not null"`
	LoggedAt    time.Time `gorm:"column:logged_at;type:timestamp;default:CURRENT_TIMESTAMP"`
}

func (MappingAuditModel) TableName() string { return "mapping_audit_logs" }
