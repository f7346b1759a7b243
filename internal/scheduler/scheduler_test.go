package scheduler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobenrich/internal/trigger"
)

// --- Mock implementations ---

// CountingTrigger answers every call with status and counts calls.
type CountingTrigger struct {
	status int
	calls  atomic.Int32
	onCall func(n int32)
}

func (t *CountingTrigger) Handle(_ context.Context, _ []byte) trigger.Response {
	n := t.calls.Add(1)
	if t.onCall != nil {
		t.onCall(n)
	}
	return trigger.Response{StatusCode: t.status, Body: `{}`}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Tests ---

func TestRun_ImmediateCycleThenCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	trig := &CountingTrigger{status: http.StatusOK, onCall: func(int32) { cancel() }}
	s := NewScheduler("@every 24h", trig, discardLogger())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil error on cancel, got: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not return within 2s after cancel")
	}
	if got := trig.calls.Load(); got != 1 {
		t.Errorf("trigger calls = %d, want 1", got)
	}
}

func TestRun_FiresOnSchedule(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reached := make(chan struct{})
	trig := &CountingTrigger{status: http.StatusOK, onCall: func(n int32) {
		if n == 2 {
			close(reached)
		}
	}}
	s := NewScheduler("@every 1s", trig, discardLogger())

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled tick did not fire within 5s")
	}
	cancel()
	<-done
}

func TestRun_BusyAndFailedRunsKeepScheduling(t *testing.T) {
	for _, status := range []int{http.StatusConflict, http.StatusInternalServerError} {
		ctx, cancel := context.WithCancel(context.Background())
		trig := &CountingTrigger{status: status, onCall: func(n int32) {
			if n == 2 {
				cancel()
			}
		}}
		s := NewScheduler("@every 1s", trig, discardLogger())

		done := make(chan error, 1)
		go func() {
			done <- s.Run(ctx)
		}()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("status %d: Run = %v", status, err)
			}
		case <-time.After(5 * time.Second):
			cancel()
			t.Fatalf("status %d: scheduler stopped firing", status)
		}
	}
}

func TestRun_InvalidSpec(t *testing.T) {
	trig := &CountingTrigger{status: http.StatusOK}
	s := NewScheduler("every day please", trig, discardLogger())

	if err := s.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
	if got := trig.calls.Load(); got != 0 {
		t.Errorf("trigger calls = %d, want 0", got)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trig := &CountingTrigger{status: http.StatusOK}

	if err := NewScheduler("@every 1h", trig, discardLogger()).Run(ctx); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if got := trig.calls.Load(); got != 0 {
		t.Errorf("trigger calls = %d, want 0", got)
	}
}
