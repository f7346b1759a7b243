package model

import (
	"context"
	"errors"
	"time"
)

// Run statuses shared by summaries and the tracker.
const (
	RunStatusRunning   = "running"
	RunStatusSubmitted = "submitted"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusTimedOut  = "timed_out"
)

// RunSummary is the outcome of one pipeline invocation.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	BatchID    string    `json:"batch_id,omitempty"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Scraped   int `json:"scraped"`
	Requested int `json:"requested"`
	Results   int `json:"results"`
	Dropped   int `json:"dropped"`
	Inserted  int `json:"inserted"`

	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Duration is the wall-clock time the run took.
func (s RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// RunState is the tracker's view of a run, updated at each stage transition.
type RunState struct {
	RunID     string    `json:"run_id"`
	BatchID   string    `json:"batch_id,omitempty"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrRunNotFound is returned by a RunTracker for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// RunTracker records run state so timed-out batches can be found and resumed later.
type RunTracker interface {
	Record(ctx context.Context, state RunState) error
	Get(ctx context.Context, runID string) (RunState, error)
	Recent(ctx context.Context, limit int) ([]RunState, error)
}
