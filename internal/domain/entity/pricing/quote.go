package pricing

import "time"

// QuoteRecord is one raw quote as returned by a source adapter, keyed by the
// instrument code the source itself uses. Ephemeral: consumed by the
// transformer within the same cycle.
type QuoteRecord struct {
	RawCode       string    `json:"raw_code"`
	Price         float64   `json:"price"`
	Volume        float64   `json:"volume"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	Bid           float64   `json:"bid"`
	Ask           float64   `json:"ask"`
	Change        float64   `json:"change,omitempty"`
	ChangePercent float64   `json:"change_percent,omitempty"`
	QuoteVolume   float64   `json:"quote_volume,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}
