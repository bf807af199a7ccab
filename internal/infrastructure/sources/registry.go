package sources

import (
	"encoding/json"
	"fmt"
	"os"

	assets "main/internal/domain/entity/assets"
	interfaces "main/internal/domain/interfaces"
)

// Config declares one source: which field-mapping driver to use, where it
// lives, and how hard it may be polled.
type Config struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Driver     string   `json:"driver"`
	BaseURL    string   `json:"base_url"`
	RatePerSec float64  `json:"rate_per_sec"`
	Burst      int      `json:"burst"`
	Codes      []string `json:"codes,omitempty"`
}

// Registry owns the process-wide set of source adapters, built once at
// startup and immutable afterwards.
type Registry struct {
	adapters []interfaces.SourceAdapter
	sources  []assets.Source
}

// LoadConfigs reads source declarations from a JSON file.
func LoadConfigs(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}
	var configs []Config
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse sources file %s: %w", path, err)
	}
	return configs, nil
}

// NewRegistry builds adapters for every configured source. Unknown drivers
// and duplicate ids are configuration errors, fatal at startup.
func NewRegistry(configs []Config) (*Registry, error) {
	registry := &Registry{
		adapters: make([]interfaces.SourceAdapter, 0, len(configs)),
		sources:  make([]assets.Source, 0, len(configs)),
	}
	seen := make(map[string]struct{}, len(configs))
	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, fmt.Errorf("source with driver %q is missing an id", cfg.Driver)
		}
		if _, ok := seen[cfg.ID]; ok {
			return nil, fmt.Errorf("duplicate source id %q", cfg.ID)
		}
		adapter, err := newAdapter(cfg)
		if err != nil {
			return nil, err
		}
		seen[cfg.ID] = struct{}{}
		registry.adapters = append(registry.adapters, adapter)
		registry.sources = append(registry.sources, assets.Source{
			ID:         cfg.ID,
			Name:       cfg.Name,
			BaseURL:    cfg.BaseURL,
			RatePerSec: cfg.RatePerSec,
			Burst:      cfg.Burst,
		})
	}
	return registry, nil
}

func newAdapter(cfg Config) (interfaces.SourceAdapter, error) {
	switch cfg.Driver {
	case "binance":
		return newBinanceAdapter(cfg), nil
	case "upbit":
		return newUpbitAdapter(cfg), nil
	case "kraken":
		return newKrakenAdapter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown source driver %q for source %q", cfg.Driver, cfg.ID)
	}
}

// Adapters returns the registered adapters in configuration order.
func (r *Registry) Adapters() []interfaces.SourceAdapter {
	return r.adapters
}

// Sources returns the registered source identities.
func (r *Registry) Sources() []assets.Source {
	return r.sources
}

// Len reports how many sources are registered.
func (r *Registry) Len() int {
	return len(r.adapters)
}
