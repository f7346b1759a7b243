package poller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/amishk599/jobenrich/internal/ai"
)

// --- Fakes ---

// ScriptedGetter returns the scripted batches in order, repeating the last one.
type ScriptedGetter struct {
	Batches []ai.Batch
	Err     error
	Calls   int
}

func (g *ScriptedGetter) GetBatch(_ context.Context, batchID string) (ai.Batch, error) {
	g.Calls++
	if g.Err != nil {
		return ai.Batch{}, g.Err
	}
	i := g.Calls - 1
	if i >= len(g.Batches) {
		i = len(g.Batches) - 1
	}
	b := g.Batches[i]
	b.ID = batchID
	return b, nil
}

// RecordingSleeper records requested waits without sleeping.
type RecordingSleeper struct {
	Waits []time.Duration
}

func (s *RecordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.Waits = append(s.Waits, d)
	return nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func inProgress(n int) []ai.Batch {
	out := make([]ai.Batch, n)
	for i := range out {
		out[i] = ai.Batch{Status: ai.BatchInProgress}
	}
	return out
}

// --- Tests ---

func TestWait_CompletesAfterNPolls(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		getter := &ScriptedGetter{Batches: append(inProgress(n), ai.Batch{Status: ai.BatchCompleted, OutputFileID: "file-out"})}
		sleeper := &RecordingSleeper{}
		p := NewBatchPoller(getter, DefaultOptions(), sleeper.Sleep, discardLogger())

		out, err := p.Wait(context.Background(), "batch_1")
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if out.Status != Completed || out.Ref != "file-out" {
			t.Errorf("n=%d: outcome = %+v", n, out)
		}
		if getter.Calls != n+1 || out.Polls != n+1 {
			t.Errorf("n=%d: polls = %d (getter %d), want %d", n, out.Polls, getter.Calls, n+1)
		}
		if len(sleeper.Waits) != n {
			t.Errorf("n=%d: sleeps = %d, want %d", n, len(sleeper.Waits), n)
		}
	}
}

func TestWait_TimesOutWithinBudget(t *testing.T) {
	getter := &ScriptedGetter{Batches: inProgress(1)}
	sleeper := &RecordingSleeper{}
	p := NewBatchPoller(getter, DefaultOptions(), sleeper.Sleep, discardLogger())

	out, err := p.Wait(context.Background(), "batch_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != TimedOut {
		t.Fatalf("status = %s, want timed_out", out.Status)
	}
	if out.Polls != 120 {
		t.Errorf("polls = %d, want 120", out.Polls)
	}

	var total time.Duration
	for _, w := range sleeper.Waits {
		total += w
	}
	if total >= 10*time.Minute {
		t.Errorf("total wait %s should stay under the 10m budget", total)
	}
	if total != out.Waited {
		t.Errorf("Outcome.Waited = %s, slept %s", out.Waited, total)
	}
}

func TestWait_ProviderFailureIsImmediate(t *testing.T) {
	for _, status := range []ai.BatchStatus{ai.BatchFailed, ai.BatchExpired, ai.BatchCancelled} {
		getter := &ScriptedGetter{Batches: []ai.Batch{{Status: ai.BatchInProgress}, {Status: status}}}
		p := NewBatchPoller(getter, DefaultOptions(), (&RecordingSleeper{}).Sleep, discardLogger())

		out, err := p.Wait(context.Background(), "batch_1")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", status, err)
		}
		if out.Status != Failed || out.Polls != 2 {
			t.Errorf("%s: outcome = %+v, want failed after 2 polls", status, out)
		}
		if out.Reason == "" {
			t.Errorf("%s: failure reason should be set", status)
		}
	}
}

func TestWait_CompletedWithoutOutputFails(t *testing.T) {
	getter := &ScriptedGetter{Batches: []ai.Batch{{Status: ai.BatchCompleted}}}
	p := NewBatchPoller(getter, DefaultOptions(), (&RecordingSleeper{}).Sleep, discardLogger())

	out, err := p.Wait(context.Background(), "batch_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != Failed {
		t.Errorf("status = %s, want failed", out.Status)
	}
}

func TestWait_FetchErrorAborts(t *testing.T) {
	getter := &ScriptedGetter{Err: errors.New("network down")}
	p := NewBatchPoller(getter, DefaultOptions(), (&RecordingSleeper{}).Sleep, discardLogger())

	if _, err := p.Wait(context.Background(), "batch_1"); err == nil {
		t.Fatal("expected error")
	}
	if getter.Calls != 1 {
		t.Errorf("calls = %d, want 1", getter.Calls)
	}
}

func TestPoll_MaxAttempts(t *testing.T) {
	calls := 0
	opts := DefaultOptions()
	opts.MaxAttempts = 3
	out, err := Poll(context.Background(), opts, (&RecordingSleeper{}).Sleep, func(context.Context) (Check, error) {
		calls++
		return Check{State: Pending}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Status != TimedOut || calls != 3 {
		t.Errorf("outcome = %+v after %d calls, want timed_out after 3", out, calls)
	}
}

func TestPoll_BackoffCapped(t *testing.T) {
	sleeper := &RecordingSleeper{}
	opts := Options{Interval: time.Second, MaxWait: time.Hour, MaxAttempts: 5, Backoff: 2, MaxInterval: 5 * time.Second}
	_, err := Poll(context.Background(), opts, sleeper.Sleep, func(context.Context) (Check, error) {
		return Check{State: Pending}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	if len(sleeper.Waits) != len(want) {
		t.Fatalf("waits = %v, want %v", sleeper.Waits, want)
	}
	for i := range want {
		if sleeper.Waits[i] != want[i] {
			t.Errorf("wait[%d] = %s, want %s", i, sleeper.Waits[i], want[i])
		}
	}
}

func TestPoll_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := Options{Interval: time.Hour, MaxWait: 24 * time.Hour}
	_, err := Poll(ctx, opts, nil, func(context.Context) (Check, error) {
		return Check{State: Pending}, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestPoll_RejectsNonPositiveInterval(t *testing.T) {
	_, err := Poll(context.Background(), Options{MaxWait: time.Minute}, nil, func(context.Context) (Check, error) {
		t.Error("check should not run")
		return Check{}, nil
	})
	if err == nil {
		t.Fatal("expected error for zero interval")
	}
}
