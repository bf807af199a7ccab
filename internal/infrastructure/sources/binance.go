package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	pricing "main/internal/domain/entity/pricing"
)

// binanceAdapter maps the Binance 24hr ticker shape onto QuoteRecord.
type binanceAdapter struct {
	id     string
	client *restClient
	codes  []string
}

func newBinanceAdapter(cfg Config) *binanceAdapter {
	return &binanceAdapter{
		id:     cfg.ID,
		client: newRESTClient(cfg.BaseURL, cfg.RatePerSec, cfg.Burst),
		codes:  cfg.Codes,
	}
}

func (a *binanceAdapter) ID() string { return a.id }

type binanceTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	OpenPrice          string `json:"openPrice"`
	BidPrice           string `json:"bidPrice"`
	AskPrice           string `json:"askPrice"`
	PriceChange        string `json:"priceChange"`
	PriceChangePercent string `json:"priceChangePercent"`
	CloseTime          int64  `json:"closeTime"`
}

func (a *binanceAdapter) FetchQuotes(ctx context.Context, codes []string) ([]pricing.QuoteRecord, error) {
	if len(codes) == 0 {
		codes = a.codes
	}

	query := url.Values{}
	if len(codes) == 1 {
		query.Set("symbol", codes[0])
	} else if len(codes) > 1 {
		encoded, err := json.Marshal(codes)
		if err != nil {
			return nil, fmt.Errorf("encode symbols: %w", err)
		}
		query.Set("symbols", string(encoded))
	}

	var tickers []binanceTicker
	if len(codes) == 1 {
		var single binanceTicker
		if err := a.client.getJSON(ctx, "/api/v3/ticker/24hr", query, &single); err != nil {
			return nil, err
		}
		tickers = []binanceTicker{single}
	} else {
		if err := a.client.getJSON(ctx, "/api/v3/ticker/24hr", query, &tickers); err != nil {
			return nil, err
		}
	}

	records := make([]pricing.QuoteRecord, 0, len(tickers))
	for _, t := range tickers {
		observedAt := time.Time{}
		if t.CloseTime > 0 {
			observedAt = time.UnixMilli(t.CloseTime).UTC()
		}
		records = append(records, pricing.QuoteRecord{
			RawCode:       t.Symbol,
			Price:         parseFloat(t.LastPrice),
			Volume:        parseFloat(t.Volume),
			QuoteVolume:   parseFloat(t.QuoteVolume),
			High:          parseFloat(t.HighPrice),
			Low:           parseFloat(t.LowPrice),
			Open:          parseFloat(t.OpenPrice),
			Bid:           parseFloat(t.BidPrice),
			Ask:           parseFloat(t.AskPrice),
			Change:        parseFloat(t.PriceChange),
			ChangePercent: parseFloat(t.PriceChangePercent),
			ObservedAt:    observedAt,
		})
	}
	return records, nil
}
