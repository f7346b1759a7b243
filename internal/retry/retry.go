// Package retry retries transient listing-source failures. Job boards are the
// only collaborator the pipeline retries; provider and datastore calls fail
// the run on their first error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/amishk599/jobenrich/internal/model"
)

// maxBackoff caps the computed delay. A server-sent Retry-After is honoured as is.
const maxBackoff = 2 * time.Minute

// Policy is an exponential backoff schedule with ±30% jitter.
type Policy struct {
	MaxRetries int           // attempts after the first failure
	BaseDelay  time.Duration // delay before the first retry, doubled after each
}

// Delay returns the wait before retry number attempt (1-based).
func (p Policy) Delay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := p.BaseDelay << (attempt - 1)
	if delay <= 0 || delay > maxBackoff {
		delay = maxBackoff
	}
	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// Do runs op until it succeeds, fails permanently or the policy is exhausted.
// onRetry, when non-nil, is called before each wait.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), onRetry func(attempt int, delay time.Duration, err error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if !Retryable(err) || attempt >= p.MaxRetries {
			return zero, err
		}

		delay := p.Delay(attempt+1, err)
		if onRetry != nil {
			onRetry(attempt+1, delay, err)
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// Retryable reports whether err is a transient failure: 429, 5xx, or a
// non-HTTP error such as a reset connection. Context errors never are.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	return true
}

// RetryScraper decorates a ListingScraper with Do.
type RetryScraper struct {
	inner  model.ListingScraper
	policy Policy
	logger *slog.Logger
}

var _ model.ListingScraper = (*RetryScraper)(nil)

// NewRetryScraper wraps inner. maxRetries counts attempts after the first failure;
// baseDelay doubles on each subsequent retry.
func NewRetryScraper(inner model.ListingScraper, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryScraper {
	return &RetryScraper{
		inner:  inner,
		policy: Policy{MaxRetries: maxRetries, BaseDelay: baseDelay},
		logger: logger,
	}
}

// Scrape delegates to the wrapped scraper, retrying transient errors.
func (s *RetryScraper) Scrape(ctx context.Context, params model.SearchParams) ([]model.Listing, error) {
	scrape := func(ctx context.Context) ([]model.Listing, error) {
		return s.inner.Scrape(ctx, params)
	}
	return Do(ctx, s.policy, scrape, func(attempt int, delay time.Duration, err error) {
		s.logger.Warn("retrying scrape after transient error",
			"site", params.Site,
			"search_term", params.SearchTerm,
			"attempt", attempt,
			"max_retries", s.policy.MaxRetries,
			"delay", delay,
			"error", err,
		)
	})
}
