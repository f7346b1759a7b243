package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobenrich/internal/ai"
)

// BatchGetter fetches the current state of a batch.
type BatchGetter interface {
	GetBatch(ctx context.Context, batchID string) (ai.Batch, error)
}

// BatchPoller waits for an OpenAI batch to reach a terminal state.
type BatchPoller struct {
	getter BatchGetter
	opts   Options
	sleep  SleepFunc
	logger *slog.Logger
}

// NewBatchPoller creates a poller. A nil sleep uses a real timer.
func NewBatchPoller(getter BatchGetter, opts Options, sleep SleepFunc, logger *slog.Logger) *BatchPoller {
	return &BatchPoller{
		getter: getter,
		opts:   opts,
		sleep:  sleep,
		logger: logger,
	}
}

// Wait polls batchID until it completes, fails, or the wait budget runs out.
// A completed batch yields its output file id as Outcome.Ref.
func (p *BatchPoller) Wait(ctx context.Context, batchID string) (Outcome, error) {
	out, err := Poll(ctx, p.opts, p.sleep, func(ctx context.Context) (Check, error) {
		b, err := p.getter.GetBatch(ctx, batchID)
		if err != nil {
			return Check{}, err
		}
		p.logger.Debug("batch status",
			"batch_id", batchID,
			"status", b.Status,
			"completed", b.RequestCounts.Completed,
			"total", b.RequestCounts.Total,
		)
		switch {
		case b.Status == ai.BatchCompleted && b.OutputFileID == "":
			return Check{State: Failure, Reason: "batch completed without an output file"}, nil
		case b.Status == ai.BatchCompleted:
			return Check{State: Done, Ref: b.OutputFileID}, nil
		case b.Status.IsFailure():
			return Check{State: Failure, Reason: b.FailureReason()}, nil
		}
		return Check{State: Pending}, nil
	})
	if err != nil {
		return out, fmt.Errorf("polling batch %s: %w", batchID, err)
	}

	p.logger.Info("batch poll finished",
		"batch_id", batchID,
		"outcome", out.Status,
		"polls", out.Polls,
		"waited", out.Waited,
	)
	return out, nil
}
