package pricing

import (
	"time"

	"github.com/google/uuid"
)

// PriceObservation is the canonical, identity-resolved unit of work produced
// once per successfully resolved quote. Immutable; written to every sink.
type PriceObservation struct {
	SourceID   string    `json:"source_id"`
	AssetID    uuid.UUID `json:"asset_id"`
	Symbol     string    `json:"symbol"`
	ObservedAt time.Time `json:"observed_at"`
	Price      float64   `json:"price"`
	Volume     float64   `json:"volume"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
	Spread     float64   `json:"spread"`
	Quality    float64   `json:"quality"`
	Active     bool      `json:"active"`
}
