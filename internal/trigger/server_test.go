package trigger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
	"github.com/amishk599/jobenrich/internal/tracker"
)

func TestServer_PostRuns(t *testing.T) {
	calls := 0
	h := NewHandler(func(context.Context) (model.RunSummary, error) {
		calls++
		return model.RunSummary{RunID: "run-1", Inserted: 3}, nil
	}, discardLogger())
	app := NewServer(context.Background(), h, nil, discardLogger())

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/runs", strings.NewReader(`{}`)))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	body := decodeBody(t, string(data))
	if body["inserted"] != float64(3) || calls != 1 {
		t.Errorf("body = %v, calls = %d", body, calls)
	}
}

func TestServer_PostRunsUsesRunContext(t *testing.T) {
	type ctxKey struct{}
	runCtx := context.WithValue(context.Background(), ctxKey{}, "serve")

	var got any
	h := NewHandler(func(ctx context.Context) (model.RunSummary, error) {
		got = ctx.Value(ctxKey{})
		return model.RunSummary{RunID: "run-1"}, nil
	}, discardLogger())
	app := NewServer(runCtx, h, nil, discardLogger())

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/runs", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if got != "serve" {
		t.Errorf("run context value = %v, want the server run context", got)
	}
}

func TestServer_Health(t *testing.T) {
	h := NewHandler(func(context.Context) (model.RunSummary, error) { return model.RunSummary{}, nil }, discardLogger())
	app := NewServer(context.Background(), h, nil, discardLogger())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_RunsFromTracker(t *testing.T) {
	tr := tracker.NewMemoryTracker()
	now := time.Now()
	_ = tr.Record(context.Background(), model.RunState{RunID: "old", Status: model.RunStatusSucceeded, StartedAt: now.Add(-time.Hour)})
	_ = tr.Record(context.Background(), model.RunState{RunID: "new", Status: model.RunStatusTimedOut, BatchID: "batch_9", StartedAt: now})

	h := NewHandler(func(context.Context) (model.RunSummary, error) { return model.RunSummary{}, nil }, discardLogger())
	app := NewServer(context.Background(), h, tr, discardLogger())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/runs?limit=1", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var runs []model.RunState
	if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if len(runs) != 1 || runs[0].RunID != "new" {
		t.Errorf("runs = %+v", runs)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/runs/new", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var state model.RunState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if state.BatchID != "batch_9" {
		t.Errorf("state = %+v", state)
	}

	for _, path := range []string{"/runs/missing", "/runs?limit=abc"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		if err != nil {
			t.Fatalf("app.Test(%s): %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode < 400 {
			t.Errorf("%s status = %d, want an error", path, resp.StatusCode)
		}
	}
}

func TestServer_RunsWithoutTracker(t *testing.T) {
	h := NewHandler(func(context.Context) (model.RunSummary, error) { return model.RunSummary{}, nil }, discardLogger())
	app := NewServer(context.Background(), h, nil, discardLogger())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/runs", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
