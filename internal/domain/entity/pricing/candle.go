package pricing

import (
	"time"

	"github.com/google/uuid"
)

// CandleProvenance distinguishes candles aggregated from the cross-source
// VWAP series from candles aggregated from raw per-source quotes.
type CandleProvenance string

const (
	ProvenanceVWAP CandleProvenance = "vwap"
	ProvenanceRaw  CandleProvenance = "raw"
)

// OHLCVCandle summarizes one fixed time bucket for one asset. Append-only.
type OHLCVCandle struct {
	ID          uuid.UUID        `json:"id"`
	AssetID     uuid.UUID        `json:"asset_id"`
	Symbol      string           `json:"symbol"`
	Interval    string           `json:"interval"`
	BucketStart time.Time        `json:"bucket_start"`
	Open        float64          `json:"open"`
	High        float64          `json:"high"`
	Low         float64          `json:"low"`
	Close       float64          `json:"close"`
	Volume      float64          `json:"volume"`
	PointCount  int              `json:"point_count"`
	Provenance  CandleProvenance `json:"provenance"`
}
