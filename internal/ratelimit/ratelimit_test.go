package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

func TestWait_SameSite_EnforcesMinDelay(t *testing.T) {
	limiter := NewSiteRateLimiter(100 * time.Millisecond)
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentSite_NoCrossBlocking(t *testing.T) {
	limiter := NewSiteRateLimiter(200 * time.Millisecond)
	ctx := context.Background()

	// Call for adzuna.
	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("adzuna wait: %v", err)
	}

	// A different site should not block.
	start := time.Now()
	if err := limiter.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("greenhouse wait: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed > 50*time.Millisecond {
		t.Errorf("expected greenhouse wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewSiteRateLimiter(5 * time.Second) // long delay
	ctx := context.Background()

	// First call to seed the last-call time.
	if err := limiter.Wait(ctx, "adzuna"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	// Cancel the context before the wait completes.
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := limiter.Wait(ctx, "adzuna")
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

// --- Mock for RateLimitedScraper test ---

type recordingScraper struct {
	called bool
}

func (f *recordingScraper) Scrape(_ context.Context, _ model.SearchParams) ([]model.Listing, error) {
	f.called = true
	return nil, nil
}

func TestRateLimitedScraper_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewSiteRateLimiter(100 * time.Millisecond)
	inner := &recordingScraper{}
	scraper := NewRateLimitedScraper(inner, limiter)
	ctx := context.Background()
	params := model.SearchParams{Site: "adzuna"}

	// First call seeds the limiter, then delegates.
	if _, err := scraper.Scrape(ctx, params); err != nil {
		t.Fatalf("first scrape: %v", err)
	}
	if !inner.called {
		t.Fatal("inner scraper was not called on first scrape")
	}

	inner.called = false

	// Second call should wait for the rate limiter.
	start := time.Now()
	if _, err := scraper.Scrape(ctx, params); err != nil {
		t.Fatalf("second scrape: %v", err)
	}
	elapsed := time.Since(start)

	if !inner.called {
		t.Fatal("inner scraper was not called on second scrape")
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second scrape, got %v", elapsed)
	}
}

func TestReserve_QueuesConcurrentCallers(t *testing.T) {
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	limiter := NewSiteRateLimiter(time.Second)
	limiter.now = func() time.Time { return base }

	var waits []time.Duration
	for range 3 {
		waits = append(waits, limiter.reserve("adzuna"))
	}
	want := []time.Duration{0, time.Second, 2 * time.Second}
	for i := range want {
		if waits[i] != want[i] {
			t.Errorf("reserve %d = %v, want %v", i, waits[i], want[i])
		}
	}

	// Once the queue has drained the next caller goes straight through.
	limiter.now = func() time.Time { return base.Add(10 * time.Second) }
	if d := limiter.reserve("adzuna"); d != 0 {
		t.Errorf("reserve after idle = %v, want 0", d)
	}
}

func TestWait_ZeroDelayNeverBlocks(t *testing.T) {
	limiter := NewSiteRateLimiter(0)
	start := time.Now()
	for range 5 {
		if err := limiter.Wait(context.Background(), "adzuna"); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero delay limiter blocked for %v", elapsed)
	}
}
