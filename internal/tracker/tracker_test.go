package tracker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobenrich/internal/model"
)

func exerciseTracker(t *testing.T, tr model.RunTracker) {
	t.Helper()
	ctx := context.Background()
	base := time.Now().Truncate(time.Second)

	older := model.RunState{RunID: uuid.NewString(), Status: model.RunStatusSucceeded, StartedAt: base.Add(-30 * time.Minute), UpdatedAt: base}
	newer := model.RunState{RunID: uuid.NewString(), Status: model.RunStatusRunning, StartedAt: base, UpdatedAt: base}
	for _, s := range []model.RunState{older, newer} {
		if err := tr.Record(ctx, s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	newer.Status = model.RunStatusTimedOut
	newer.BatchID = "batch_123"
	if err := tr.Record(ctx, newer); err != nil {
		t.Fatalf("Record update: %v", err)
	}

	got, err := tr.Get(ctx, newer.RunID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != model.RunStatusTimedOut || got.BatchID != "batch_123" {
		t.Errorf("Get = %+v", got)
	}

	if _, err := tr.Get(ctx, "no-such-run"); !errors.Is(err, model.ErrRunNotFound) {
		t.Errorf("Get unknown: err = %v, want ErrRunNotFound", err)
	}

	recent, err := tr.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].RunID != newer.RunID || recent[1].RunID != older.RunID {
		t.Errorf("Recent order = %+v", recent)
	}

	one, err := tr.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent(1): %v", err)
	}
	if len(one) != 1 {
		t.Errorf("Recent(1) = %d runs", len(one))
	}
}

func TestMemoryTracker(t *testing.T) {
	exerciseTracker(t, NewMemoryTracker())
}

// Runs against a real server only when JOBENRICH_TEST_REDIS_URL is set.
func TestRedisTracker(t *testing.T) {
	url := os.Getenv("JOBENRICH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("JOBENRICH_TEST_REDIS_URL not set")
	}
	tr, err := NewRedisTracker(context.Background(), url, time.Hour)
	if err != nil {
		t.Fatalf("NewRedisTracker: %v", err)
	}
	defer tr.Close()
	exerciseTracker(t, tr)
}

func TestNewRedisTracker_BadURL(t *testing.T) {
	if _, err := NewRedisTracker(context.Background(), "not-a-url", time.Hour); err == nil {
		t.Fatal("expected error for invalid redis url")
	}
}
