// Package poller waits for an asynchronous provider job to finish under a
// bounded wait budget.
package poller

import (
	"context"
	"fmt"
	"time"
)

// OutcomeStatus is how a poll loop ended.
type OutcomeStatus int

const (
	// Completed means the job finished and Outcome.Ref names its output.
	Completed OutcomeStatus = iota
	// TimedOut means the local wait budget ran out. The remote job may still finish.
	TimedOut
	// Failed means the provider reported a terminal failure.
	Failed
)

func (s OutcomeStatus) String() string {
	switch s {
	case Completed:
		return "completed"
	case TimedOut:
		return "timed_out"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("OutcomeStatus(%d)", int(s))
}

// Outcome is the result of a poll loop.
type Outcome struct {
	Status OutcomeStatus
	Ref    string // output reference, set when Completed
	Reason string // provider failure reason, set when Failed
	Polls  int
	Waited time.Duration
}

// Options bound a poll loop.
type Options struct {
	Interval    time.Duration // wait between polls
	MaxWait     time.Duration // total sleep budget before giving up
	MaxAttempts int           // 0 means only MaxWait bounds the loop
	Backoff     float64       // interval multiplier after each wait, values <= 1 keep it fixed
	MaxInterval time.Duration // cap for a growing interval, 0 means uncapped
}

// DefaultOptions polls every 5 seconds for up to 10 minutes.
func DefaultOptions() Options {
	return Options{
		Interval: 5 * time.Second,
		MaxWait:  10 * time.Minute,
		Backoff:  1,
	}
}

// State is what a single status check observed.
type State int

const (
	Pending State = iota
	Done
	Failure
)

// Check is the result of one status check.
type Check struct {
	State  State
	Ref    string
	Reason string
}

// CheckFunc performs one status check.
type CheckFunc func(ctx context.Context) (Check, error)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Poll calls check until it reports Done or Failure, or the budget in opts
// runs out. The loop never sleeps past MaxWait: a check whose following wait
// would reach the budget is the last one. A check error ends the loop with
// that error. A nil sleep uses a real timer.
func Poll(ctx context.Context, opts Options, sleep SleepFunc, check CheckFunc) (Outcome, error) {
	if opts.Interval <= 0 {
		return Outcome{}, fmt.Errorf("poll interval must be positive, got %s", opts.Interval)
	}
	if sleep == nil {
		sleep = sleepContext
	}

	var out Outcome
	interval := opts.Interval
	for {
		out.Polls++
		c, err := check(ctx)
		if err != nil {
			return out, err
		}
		switch c.State {
		case Done:
			out.Status = Completed
			out.Ref = c.Ref
			return out, nil
		case Failure:
			out.Status = Failed
			out.Reason = c.Reason
			return out, nil
		}

		if opts.MaxAttempts > 0 && out.Polls >= opts.MaxAttempts {
			out.Status = TimedOut
			return out, nil
		}
		if out.Waited+interval >= opts.MaxWait {
			out.Status = TimedOut
			return out, nil
		}
		if err := sleep(ctx, interval); err != nil {
			return out, err
		}
		out.Waited += interval
		interval = nextInterval(interval, opts)
	}
}

func nextInterval(cur time.Duration, opts Options) time.Duration {
	if opts.Backoff <= 1 {
		return cur
	}
	next := time.Duration(float64(cur) * opts.Backoff)
	if opts.MaxInterval > 0 && next > opts.MaxInterval {
		next = opts.MaxInterval
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
