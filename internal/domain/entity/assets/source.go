package assets

// Source identifies one market-data origin. Immutable after registration;
// the process-wide registry is built at startup.
type Source struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	BaseURL    string  `json:"base_url"`
	RatePerSec float64 `json:"rate_per_sec"`
	Burst      int     `json:"burst"`
}
