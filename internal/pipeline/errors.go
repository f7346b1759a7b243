package pipeline

import (
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
)

// Stage names a pipeline step.
type Stage string

const (
	StageScrape  Stage = "scrape"
	StageSubmit  Stage = "submit"
	StagePoll    Stage = "poll"
	StageMerge   Stage = "merge"
	StagePersist Stage = "persist"
)

// Kind classifies a run failure. It is reported to callers as error_kind.
type Kind string

const (
	KindConfig         Kind = "config"
	KindEmptyResult    Kind = "empty_result"
	KindTransport      Kind = "transport"
	KindTimeout        Kind = "timeout"
	KindProviderFailed Kind = "provider_failed"
	KindPersist        Kind = "persist"
)

// Error is a failed stage. BatchID is set once a batch exists so the run
// can be resumed.
type Error struct {
	Stage   Stage
	Kind    Kind
	BatchID string
	Err     error
	Stack   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StackTrace returns the stack captured where the stage failed.
func (e *Error) StackTrace() []byte {
	return e.Stack
}

func newError(stage Stage, kind Kind, batchID string, err error) *Error {
	var stack []byte
	var ge *goerrors.Error
	if errors.As(err, &ge) {
		stack = ge.Stack()
	} else {
		stack = goerrors.Wrap(err, 2).Stack()
	}
	return &Error{Stage: stage, Kind: kind, BatchID: batchID, Err: err, Stack: stack}
}

// KindOf returns the failure kind of err, or "" when err is not a stage error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// BatchIDOf returns the batch id carried by a stage error, if any.
func BatchIDOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.BatchID
	}
	return ""
}
