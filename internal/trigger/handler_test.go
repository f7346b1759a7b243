package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatalf("body %q is not JSON: %v", body, err)
	}
	return m
}

func TestHandle_Success(t *testing.T) {
	h := NewHandler(func(context.Context) (model.RunSummary, error) {
		return model.RunSummary{RunID: "run-1", Status: model.RunStatusSucceeded, Inserted: 0}, nil
	}, discardLogger())

	resp := h.Handle(context.Background(), []byte(`{"source":"aws.events"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody(t, resp.Body)
	if body["message"] != "Processed and stored successfully" || body["run_id"] != "run-1" {
		t.Errorf("body = %v", body)
	}
	if body["inserted"] != float64(0) {
		t.Errorf("inserted = %v, want 0 to be present", body["inserted"])
	}
}

func TestHandle_Failure(t *testing.T) {
	runErr := &pipeline.Error{Stage: pipeline.StagePoll, Kind: pipeline.KindTimeout, BatchID: "batch_1", Err: errors.New("not finished")}
	h := NewHandler(func(context.Context) (model.RunSummary, error) {
		return model.RunSummary{RunID: "run-2", BatchID: "batch_1", Status: model.RunStatusTimedOut, ErrorKind: "timeout"}, runErr
	}, discardLogger())

	resp := h.Handle(context.Background(), nil)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	body := decodeBody(t, resp.Body)
	if body["message"] != "There was an error" || body["error_kind"] != "timeout" || body["batch_id"] != "batch_1" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["inserted"]; ok {
		t.Error("failure body should not carry inserted")
	}
}

func TestHandle_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h := NewHandler(func(context.Context) (model.RunSummary, error) {
		close(started)
		<-release
		return model.RunSummary{RunID: "run-1"}, nil
	}, discardLogger())

	done := make(chan Response)
	go func() { done <- h.Handle(context.Background(), nil) }()
	<-started

	if !h.Busy() {
		t.Error("handler should report busy while a run is in flight")
	}
	if resp := h.Handle(context.Background(), nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("concurrent status = %d, want 409", resp.StatusCode)
	}

	close(release)
	if resp := <-done; resp.StatusCode != http.StatusOK {
		t.Errorf("first run status = %d, want 200", resp.StatusCode)
	}
	if h.Busy() {
		t.Error("handler should be idle after the run")
	}
}

func TestHandle_WaitBlocksUntilRunReturns(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h := NewHandler(func(context.Context) (model.RunSummary, error) {
		close(started)
		<-release
		return model.RunSummary{RunID: "run-1"}, nil
	}, discardLogger())

	go h.Handle(context.Background(), nil)
	<-started

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := h.Wait(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait during run = %v, want deadline exceeded", err)
	}

	close(release)
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait after release: %v", err)
	}
	if h.Busy() {
		t.Error("handler should be idle once Wait returns")
	}
}

func TestHandle_WaitWhenIdle(t *testing.T) {
	h := NewHandler(func(context.Context) (model.RunSummary, error) { return model.RunSummary{}, nil }, discardLogger())
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}
