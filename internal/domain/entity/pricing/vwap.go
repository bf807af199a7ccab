package pricing

import (
	"time"

	"github.com/google/uuid"
)

// VWAPRecord is the volume-weighted consensus price for one asset over one
// time window. The contributing source list is kept for auditability of
// which sources fed a given price point.
type VWAPRecord struct {
	ID          uuid.UUID `json:"id"`
	AssetID     uuid.UUID `json:"asset_id"`
	Symbol      string    `json:"symbol"`
	WindowStart time.Time `json:"window_start"`
	Window      string    `json:"window"`
	Price       float64   `json:"price"`
	TotalVolume float64   `json:"total_volume"`
	TotalValue  float64   `json:"total_value"`
	SourceCount int       `json:"source_count"`
	Sources     []string  `json:"sources"`
}
