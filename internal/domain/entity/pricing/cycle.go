package pricing

import (
	"time"

	"github.com/google/uuid"
)

// CycleStatus is the terminal (or in-flight) state of one pipeline cycle.
type CycleStatus string

const (
	CycleRunning   CycleStatus = "running"
	CycleCompleted CycleStatus = "completed"
	CyclePartial   CycleStatus = "partial"
	CycleFailed    CycleStatus = "failed"
)

// CycleRun records one pipeline execution for observability and for
// detecting overlapping runs.
type CycleRun struct {
	ID               uuid.UUID   `json:"id"`
	StartedAt        time.Time   `json:"started_at"`
	FinishedAt       *time.Time  `json:"finished_at,omitempty"`
	Status           CycleStatus `json:"status"`
	SourcesTotal     int         `json:"sources_total"`
	SourcesSucceeded int         `json:"sources_succeeded"`
	SourcesFailed    int         `json:"sources_failed"`
	RecordsExtracted int         `json:"records_extracted"`
	RecordsResolved  int         `json:"records_resolved"`
	RecordsLoaded    int         `json:"records_loaded"`
	VWAPCount        int         `json:"vwap_count"`
	Error            string      `json:"error,omitempty"`
}
