package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pricing "main/internal/domain/entity/pricing"
	interfaces "main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrSourceTimeout marks a source that did not answer within the per-source
// extraction deadline.
var ErrSourceTimeout = errors.New("source timed out")

// Extractor fans one quote request out to every registered source in
// parallel, isolating failures per source. A failed or slow source simply
// contributes zero records this cycle; no retries.
type Extractor struct {
	timeout time.Duration
	logger  *logrus.Logger
}

func NewExtractor(timeout time.Duration, logger *logrus.Logger) *Extractor {
	return &Extractor{timeout: timeout, logger: logger}
}

// Extract issues one adapter call per source concurrently and collects every
// outcome before returning: transformation never starts on a partial view.
func (e *Extractor) Extract(ctx context.Context, adapters []interfaces.SourceAdapter) ExtractionReport {
	report := ExtractionReport{
		StartedAt:    time.Now().UTC(),
		SourcesTotal: len(adapters),
		Outcomes:     make([]SourceOutcome, len(adapters)),
	}

	var wg sync.WaitGroup
	for i, adapter := range adapters {
		wg.Add(1)
		go func(i int, adapter interfaces.SourceAdapter) {
			defer wg.Done()
			report.Outcomes[i] = e.extractOne(ctx, adapter)
		}(i, adapter)
	}
	wg.Wait()

	for _, outcome := range report.Outcomes {
		if outcome.Err != nil {
			report.SourcesFailed++
			report.Failures = append(report.Failures, SourceFailure{
				SourceID: outcome.SourceID,
				Reason:   outcome.Err.Error(),
			})
			e.logger.WithField("source", outcome.SourceID).WithError(outcome.Err).Warn("source extraction failed")
			continue
		}
		report.SourcesSucceeded++
		report.TotalRecords += len(outcome.Records)
		if outcome.Duration > report.SlowestSuccess {
			report.SlowestSuccess = outcome.Duration
		}
	}

	if report.SourcesTotal > 0 && report.SourcesFailed*2 > report.SourcesTotal {
		e.logger.WithFields(logrus.Fields{
			"failed": report.SourcesFailed,
			"total":  report.SourcesTotal,
		}).Warn("more than half of the sources failed this cycle")
	}

	e.logger.WithFields(logrus.Fields{
		"sources":   report.SourcesTotal,
		"succeeded": report.SourcesSucceeded,
		"failed":    report.SourcesFailed,
		"records":   report.TotalRecords,
	}).Info("extraction finished")
	return report
}

type fetchResult struct {
	records []pricing.QuoteRecord
	err     error
}

// extractOne races the adapter call against the per-source timeout. The
// result channel is buffered so a late response is dropped, not leaked; the
// underlying call is not force-killed.
func (e *Extractor) extractOne(ctx context.Context, adapter interfaces.SourceAdapter) SourceOutcome {
	start := time.Now()
	resultCh := make(chan fetchResult, 1)

	go func() {
		records, err := adapter.FetchQuotes(ctx, nil)
		resultCh <- fetchResult{records: records, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	outcome := SourceOutcome{SourceID: adapter.ID()}
	select {
	case result := <-resultCh:
		outcome.Duration = time.Since(start)
		if result.err != nil {
			outcome.Err = fmt.Errorf("fetch quotes: %w", result.err)
			return outcome
		}
		outcome.Records = result.records
	case <-timer.C:
		outcome.Duration = time.Since(start)
		outcome.Err = fmt.Errorf("%w after %s", ErrSourceTimeout, e.timeout)
	}
	return outcome
}
