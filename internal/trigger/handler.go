// Package trigger turns an invocation event into one pipeline run and a
// status-coded response.
package trigger

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/pipeline"
)

const (
	msgSuccess = "Processed and stored successfully"
	msgFailure = "There was an error"
	msgBusy    = "A run is already in progress"
)

// RunFunc executes one pipeline run.
type RunFunc func(ctx context.Context) (model.RunSummary, error)

// Response is what the invoker receives. Body is JSON.
type Response struct {
	StatusCode int
	Body       string
}

type responseBody struct {
	Message   string `json:"message"`
	RunID     string `json:"run_id,omitempty"`
	Inserted  *int   `json:"inserted,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
}

// Handler runs the pipeline for each event. At most one run is in flight:
// overlapping events get 409 since runs share the request file path.
type Handler struct {
	run      RunFunc
	busy     atomic.Bool
	inflight sync.WaitGroup
	logger   *slog.Logger
}

// NewHandler wraps run.
func NewHandler(run RunFunc, logger *slog.Logger) *Handler {
	return &Handler{run: run, logger: logger}
}

// Busy reports whether a run is in progress.
func (h *Handler) Busy() bool {
	return h.busy.Load()
}

// Wait blocks until the in-flight run, if any, has returned or ctx is done.
// Call it after the event sources have stopped and before releasing what
// the run uses.
func (h *Handler) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle runs the pipeline once. The event payload is not interpreted.
func (h *Handler) Handle(ctx context.Context, event []byte) Response {
	if !h.busy.CompareAndSwap(false, true) {
		h.logger.Warn("run rejected, another run is in progress")
		return respond(http.StatusConflict, responseBody{Message: msgBusy})
	}
	h.inflight.Add(1)
	defer h.inflight.Done()
	defer h.busy.Store(false)

	h.logger.Debug("trigger event received", "bytes", len(event))
	summary, err := h.run(ctx)
	if err != nil {
		h.logger.Error("run failed",
			"run_id", summary.RunID,
			"error_kind", summary.ErrorKind,
			"batch_id", summary.BatchID,
			"error", err,
		)
		kind := string(pipeline.KindOf(err))
		if kind == "" {
			kind = summary.ErrorKind
		}
		return respond(http.StatusInternalServerError, responseBody{
			Message:   msgFailure,
			RunID:     summary.RunID,
			ErrorKind: kind,
			BatchID:   summary.BatchID,
		})
	}

	inserted := summary.Inserted
	return respond(http.StatusOK, responseBody{
		Message:  msgSuccess,
		RunID:    summary.RunID,
		Inserted: &inserted,
	})
}

func respond(status int, body responseBody) Response {
	data, err := json.Marshal(body)
	if err != nil {
		return Response{StatusCode: http.StatusInternalServerError, Body: `{"message":"` + msgFailure + `"}`}
	}
	return Response{StatusCode: status, Body: string(data)}
}
