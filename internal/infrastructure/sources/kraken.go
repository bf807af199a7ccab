package sources

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	pricing "main/internal/domain/entity/pricing"
)

// krakenAdapter maps the Kraken public ticker shape onto QuoteRecord.
// Kraken reports arrays per pair; index conventions follow its API docs
// (c[0] last price, v[1] 24h volume, b[0]/a[0] best bid/ask).
type krakenAdapter struct {
	id     string
	client *restClient
	codes  []string
}

func newKrakenAdapter(cfg Config) *krakenAdapter {
	return &krakenAdapter{
		id:     cfg.ID,
		client: newRESTClient(cfg.BaseURL, cfg.RatePerSec, cfg.Burst),
		codes:  cfg.Codes,
	}
}

func (a *krakenAdapter) ID() string { return a.id }

type krakenTicker struct {
	Ask    []string `json:"a"`
	Bid    []string `json:"b"`
	Close  []string `json:"c"`
	Volume []string `json:"v"`
	Low    []string `json:"l"`
	High   []string `json:"h"`
	Open   string   `json:"o"`
}

type krakenResponse struct {
	Error  []string                `json:"error"`
	Result map[string]krakenTicker `json:"result"`
}

func (a *krakenAdapter) FetchQuotes(ctx context.Context, codes []string) ([]pricing.QuoteRecord, error) {
	if len(codes) == 0 {
		codes = a.codes
	}

	query := url.Values{}
	if len(codes) > 0 {
		query.Set("pair", strings.Join(codes, ","))
	}

	var resp krakenResponse
	if err := a.client.getJSON(ctx, "/0/public/Ticker", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken api error: %s", strings.Join(resp.Error, "; "))
	}

	observedAt := time.Now().UTC()
	records := make([]pricing.QuoteRecord, 0, len(resp.Result))
	for pair, t := range resp.Result {
		records = append(records, pricing.QuoteRecord{
			RawCode:    pair,
			Price:      firstFloat(t.Close),
			Volume:     secondFloat(t.Volume),
			High:       secondFloat(t.High),
			Low:        secondFloat(t.Low),
			Open:       parseFloat(t.Open),
			Bid:        firstFloat(t.Bid),
			Ask:        firstFloat(t.Ask),
			ObservedAt: observedAt,
		})
	}
	return records, nil
}

func firstFloat(values []string) float64 {
	if len(values) == 0 {
		return 0
	}
	return parseFloat(values[0])
}

func secondFloat(values []string) float64 {
	if len(values) < 2 {
		return firstFloat(values)
	}
	return parseFloat(values[1])
}
