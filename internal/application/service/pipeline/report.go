package pipeline

import (
	"fmt"
	"time"

	pricing "main/internal/domain/entity/pricing"
)

// SourceOutcome captures one source's extraction result: either records or
// a failure reason, never both propagated past the extractor.
type SourceOutcome struct {
	SourceID string
	Records  []pricing.QuoteRecord
	Duration time.Duration
	Err      error
}

// Succeeded reports whether the source delivered this cycle.
func (o SourceOutcome) Succeeded() bool {
	return o.Err == nil
}

// SourceFailure names a failed source and why, for the cycle report.
type SourceFailure struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// ExtractionReport aggregates per-source outcomes for one cycle.
type ExtractionReport struct {
	StartedAt        time.Time
	Outcomes         []SourceOutcome
	SourcesTotal     int
	SourcesSucceeded int
	SourcesFailed    int
	TotalRecords     int
	SlowestSuccess   time.Duration
	Failures         []SourceFailure
}

// SourceTransformStats tracks one source's resolution pass.
type SourceTransformStats struct {
	SourceID  string
	Processed int
	Resolved  int
	Unmapped  int
	Err       error
}

// TransformReport carries the cycle's canonical observations plus
// per-source and aggregate resolution accounting.
type TransformReport struct {
	Observations   []pricing.PriceObservation
	Stats          []SourceTransformStats
	TotalProcessed int
	TotalResolved  int
}

// ResolutionRate is the fraction of processed records that resolved to a
// canonical asset. A cycle with nothing to process counts as fully resolved.
func (r TransformReport) ResolutionRate() float64 {
	if r.TotalProcessed == 0 {
		return 1
	}
	return float64(r.TotalResolved) / float64(r.TotalProcessed)
}

// SinkResult records one persistence sink's outcome.
type SinkResult struct {
	Name     string
	Critical bool
	Duration time.Duration
	Err      error
}

// LoadReport aggregates the fan-out persistence outcomes for one cycle.
type LoadReport struct {
	Loaded int
	Sinks  []SinkResult
}

// CriticalErr returns the failure of the critical sink, if any.
// Non-critical sink failures never surface here.
func (r LoadReport) CriticalErr() error {
	for _, sink := range r.Sinks {
		if sink.Critical && sink.Err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCriticalSink, sink.Name, sink.Err)
		}
	}
	return nil
}
