package pipeline

import (
	"context"
	"sync"
	"time"

	pricing "main/internal/domain/entity/pricing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// defaultTransformBatch caps how many records a single worker goroutine
// normalizes before handing back its slice.
const defaultTransformBatch = 100

// lowResolutionRate marks a cycle whose mappings need curation attention.
const lowResolutionRate = 0.5

// Transformer resolves raw quote batches to canonical identities and
// normalizes them into scored price observations.
type Transformer struct {
	resolver  *IdentityResolver
	batchSize int
	logger    *logrus.Logger
}

func NewTransformer(resolver *IdentityResolver, batchSize int, logger *logrus.Logger) *Transformer {
	if batchSize <= 0 {
		batchSize = defaultTransformBatch
	}
	return &Transformer{resolver: resolver, batchSize: batchSize, logger: logger}
}

// Transform processes every source's outcome in parallel and
// independently: a resolution failure on one source drops that source's
// records and moves on.
func (t *Transformer) Transform(ctx context.Context, extraction *ExtractionReport) *TransformReport {
	report := &TransformReport{
		Observations: make([]pricing.PriceObservation, 0, extraction.TotalRecords),
		Stats:        make([]SourceTransformStats, 0, len(extraction.Outcomes)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, outcome := range extraction.Outcomes {
		if !outcome.Succeeded() || len(outcome.Records) == 0 {
			continue
		}

		wg.Add(1)
		go func(outcome SourceOutcome) {
			defer wg.Done()

			stats, observations := t.transformSource(ctx, outcome)
			if stats.Err != nil {
				t.logger.WithError(stats.Err).WithField("source", outcome.SourceID).Error("failed to resolve source batch, dropping records")
			}

			mu.Lock()
			report.Stats = append(report.Stats, stats)
			report.TotalProcessed += stats.Processed
			report.TotalResolved += stats.Resolved
			report.Observations = append(report.Observations, observations...)
			mu.Unlock()
		}(outcome)
	}
	wg.Wait()

	if rate := report.ResolutionRate(); report.TotalProcessed > 0 && rate < lowResolutionRate {
		t.logger.WithFields(logrus.Fields{
			"resolution_rate": rate,
			"processed":       report.TotalProcessed,
			"resolved":        report.TotalResolved,
		}).Warn("low identity resolution rate")
	}

	return report
}

func (t *Transformer) transformSource(ctx context.Context, outcome SourceOutcome) (SourceTransformStats, []pricing.PriceObservation) {
	stats := SourceTransformStats{SourceID: outcome.SourceID}

	rawCodes := make([]string, len(outcome.Records))
	for i, q := range outcome.Records {
		rawCodes[i] = q.RawCode
	}

	mappings, err := t.resolver.ResolveBatch(ctx, outcome.SourceID, rawCodes)
	if err != nil {
		stats.Err = err
		return stats, nil
	}

	type chunkResult struct {
		observations []pricing.PriceObservation
		unmapped     []string
	}

	chunks := make([][]pricing.QuoteRecord, 0, len(outcome.Records)/t.batchSize+1)
	for start := 0; start < len(outcome.Records); start += t.batchSize {
		end := start + t.batchSize
		if end > len(outcome.Records) {
			end = len(outcome.Records)
		}
		chunks = append(chunks, outcome.Records[start:end])
	}

	results := make([]chunkResult, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []pricing.QuoteRecord) {
			defer wg.Done()

			res := chunkResult{}
			for _, quote := range chunk {
				asset, ok := mappings[quote.RawCode]
				if !ok {
					res.unmapped = append(res.unmapped, quote.RawCode)
					continue
				}
				res.observations = append(res.observations, BuildObservation(outcome.SourceID, asset.ID, asset.Symbol, quote))
			}
			results[i] = res
		}(i, chunk)
	}
	wg.Wait()

	observations := make([]pricing.PriceObservation, 0, len(outcome.Records))
	for _, res := range results {
		observations = append(observations, res.observations...)
		for _, code := range res.unmapped {
			t.resolver.TrackUnmapped(ctx, outcome.SourceID, code)
		}
		stats.Unmapped += len(res.unmapped)
	}

	stats.Processed = len(outcome.Records)
	stats.Resolved = len(observations)
	return stats, observations
}

// BuildObservation normalizes one raw quote against its resolved identity.
func BuildObservation(sourceID string, assetID uuid.UUID, symbol string, quote pricing.QuoteRecord) pricing.PriceObservation {
	observedAt := quote.ObservedAt
	if observedAt.IsZero() {
		observedAt = time.Now().UTC()
	}

	return pricing.PriceObservation{
		SourceID:   sourceID,
		AssetID:    assetID,
		Symbol:     symbol,
		ObservedAt: observedAt,
		Price:      quote.Price,
		Volume:     quote.Volume,
		Bid:        quote.Bid,
		Ask:        quote.Ask,
		Spread:     Spread(quote.Bid, quote.Ask),
		Quality:    QualityScore(quote),
		Active:     true,
	}
}

// QualityScore grades a raw quote's plausibility on [0, 1]. Each defect
// subtracts a fixed penalty from a perfect score.
func QualityScore(quote pricing.QuoteRecord) float64 {
	score := 1.0

	if quote.Price <= 0 {
		score -= 0.5
	}
	if quote.Volume <= 0 {
		score -= 0.2
	}
	if quote.ObservedAt.IsZero() {
		score -= 0.1
	}
	if quote.High != 0 && quote.Low != 0 && quote.High < quote.Low {
		score -= 0.3
	}
	if quote.Bid != 0 && quote.Ask != 0 && quote.Bid > quote.Ask {
		score -= 0.2
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Spread returns the bid/ask spread as a percentage of the ask price,
// or 0 when either side is missing.
func Spread(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 {
		return 0
	}
	return (ask - bid) / ask * 100
}
