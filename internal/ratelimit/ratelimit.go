// Package ratelimit spaces out requests to the same job board.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

// SiteRateLimiter hands out request slots per site, at least minDelay apart.
// Concurrent callers for one site queue behind each other in arrival order.
type SiteRateLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // earliest start of the next request, per site
	minDelay time.Duration
	now      func() time.Time
}

// NewSiteRateLimiter returns a limiter with minDelay between requests to one site.
// A zero minDelay never blocks.
func NewSiteRateLimiter(minDelay time.Duration) *SiteRateLimiter {
	return &SiteRateLimiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
		now:      time.Now,
	}
}

// reserve claims the next slot for site and returns how long to wait for it.
func (r *SiteRateLimiter) reserve(site string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	slot := r.next[site]
	if slot.Before(now) {
		slot = now
	}
	r.next[site] = slot.Add(r.minDelay)
	return slot.Sub(now)
}

// Wait blocks until site's reserved slot arrives. A cancelled wait keeps its
// slot, so later callers are not pulled forward.
func (r *SiteRateLimiter) Wait(ctx context.Context, site string) error {
	d := r.reserve(site)
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", site, ctx.Err())
	case <-t.C:
		return nil
	}
}

// RateLimitedScraper waits for a slot on SearchParams.Site before each scrape.
type RateLimitedScraper struct {
	inner   model.ListingScraper
	limiter *SiteRateLimiter
}

var _ model.ListingScraper = (*RateLimitedScraper)(nil)

// NewRateLimitedScraper wraps inner. Scrapers hitting the same site should
// share a limiter.
func NewRateLimitedScraper(inner model.ListingScraper, limiter *SiteRateLimiter) *RateLimitedScraper {
	return &RateLimitedScraper{inner: inner, limiter: limiter}
}

func (s *RateLimitedScraper) Scrape(ctx context.Context, params model.SearchParams) ([]model.Listing, error) {
	if err := s.limiter.Wait(ctx, params.Site); err != nil {
		return nil, err
	}
	return s.inner.Scrape(ctx, params)
}
