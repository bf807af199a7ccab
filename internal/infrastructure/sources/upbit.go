package sources

import (
	"context"
	"net/url"
	"strings"
	"time"

	pricing "main/internal/domain/entity/pricing"
)

// upbitAdapter maps the Upbit ticker shape onto QuoteRecord. Upbit has no
// bid/ask in its ticker payload; those fields stay zero and the spread
// derivation treats them as absent.
type upbitAdapter struct {
	id     string
	client *restClient
	codes  []string
}

func newUpbitAdapter(cfg Config) *upbitAdapter {
	return &upbitAdapter{
		id:     cfg.ID,
		client: newRESTClient(cfg.BaseURL, cfg.RatePerSec, cfg.Burst),
		codes:  cfg.Codes,
	}
}

func (a *upbitAdapter) ID() string { return a.id }

type upbitMarket struct {
	Market string `json:"market"`
}

type upbitTicker struct {
	Market             string  `json:"market"`
	TradePrice         float64 `json:"trade_price"`
	AccTradeVolume24h  float64 `json:"acc_trade_volume_24h"`
	AccTradePrice24h   float64 `json:"acc_trade_price_24h"`
	HighPrice          float64 `json:"high_price"`
	LowPrice           float64 `json:"low_price"`
	OpeningPrice       float64 `json:"opening_price"`
	SignedChangePrice  float64 `json:"signed_change_price"`
	SignedChangeRate   float64 `json:"signed_change_rate"`
	TimestampMillis    int64   `json:"timestamp"`
}

func (a *upbitAdapter) FetchQuotes(ctx context.Context, codes []string) ([]pricing.QuoteRecord, error) {
	if len(codes) == 0 {
		codes = a.codes
	}
	if len(codes) == 0 {
		markets, err := a.listMarkets(ctx)
		if err != nil {
			return nil, err
		}
		codes = markets
	}
	if len(codes) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("markets", strings.Join(codes, ","))

	var tickers []upbitTicker
	if err := a.client.getJSON(ctx, "/v1/ticker", query, &tickers); err != nil {
		return nil, err
	}

	records := make([]pricing.QuoteRecord, 0, len(tickers))
	for _, t := range tickers {
		observedAt := time.Time{}
		if t.TimestampMillis > 0 {
			observedAt = time.UnixMilli(t.TimestampMillis).UTC()
		}
		records = append(records, pricing.QuoteRecord{
			RawCode:       t.Market,
			Price:         t.TradePrice,
			Volume:        t.AccTradeVolume24h,
			QuoteVolume:   t.AccTradePrice24h,
			High:          t.HighPrice,
			Low:           t.LowPrice,
			Open:          t.OpeningPrice,
			Change:        t.SignedChangePrice,
			ChangePercent: t.SignedChangeRate * 100,
			ObservedAt:    observedAt,
		})
	}
	return records, nil
}

// listMarkets fetches the tradable market codes, keeping the fiat and
// stablecoin quote markets the aggregator cares about.
func (a *upbitAdapter) listMarkets(ctx context.Context) ([]string, error) {
	var markets []upbitMarket
	if err := a.client.getJSON(ctx, "/v1/market/all", nil, &markets); err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(markets))
	for _, m := range markets {
		if strings.HasPrefix(m.Market, "KRW-") || strings.HasPrefix(m.Market, "BTC-") || strings.HasPrefix(m.Market, "USDT-") {
			codes = append(codes, m.Market)
		}
	}
	return codes, nil
}
