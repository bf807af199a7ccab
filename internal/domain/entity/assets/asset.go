package assets

import (
	"time"

	"github.com/google/uuid"
)

// CanonicalAsset is the single, deduplicated identity of a tradable asset,
// independent of any one source's naming. Read-only for the pipeline;
// created and updated by the external mapping-maintenance job.
type CanonicalAsset struct {
	ID              uuid.UUID `json:"id"`
	Symbol          string    `json:"symbol"`
	Name            string    `json:"name"`
	CoinGeckoID     string    `json:"coingecko_id,omitempty"`
	CoinMarketCapID string    `json:"coinmarketcap_id,omitempty"`
}

// SymbolMapping associates a source-local instrument code with a canonical
// asset. At most one active mapping exists per (SourceID, RawCode).
type SymbolMapping struct {
	SourceID     string    `json:"source_id"`
	RawCode      string    `json:"raw_code"`
	AssetID      uuid.UUID `json:"asset_id"`
	Confidence   float64   `json:"confidence"`
	LastVerified time.Time `json:"last_verified"`
	Active       bool      `json:"active"`
}
