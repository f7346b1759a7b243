// Package scheduler fires the enrichment trigger on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobenrich/internal/trigger"
)

// Trigger runs the pipeline once per call.
type Trigger interface {
	Handle(ctx context.Context, event []byte) trigger.Response
}

// Scheduler owns the main loop: it runs one immediate cycle, then fires
// the trigger on every tick of spec.
type Scheduler struct {
	spec    string
	trigger Trigger
	logger  *slog.Logger
}

// NewScheduler creates a scheduler for a robfig/cron spec such as
// "@every 24h" or "0 6 * * *".
func NewScheduler(spec string, t Trigger, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		spec:    spec,
		trigger: t,
		logger:  logger,
	}
}

// Run blocks until ctx is cancelled and returns nil then (graceful shutdown).
// A tick that lands while a run is still going is skipped.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithLogger(cronLogger{s.logger}))
	if _, err := c.AddFunc(s.spec, func() { s.fire(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.spec, err)
	}

	s.logger.Info("starting scheduler", "schedule", s.spec)

	// Run one immediate cycle.
	s.fire(ctx)

	c.Start()
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) fire(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	resp := s.trigger.Handle(ctx, nil)
	switch resp.StatusCode {
	case http.StatusOK:
		s.logger.Info("scheduled run finished", "body", resp.Body)
	case http.StatusConflict:
		s.logger.Warn("previous run still in progress, skipping tick")
	default:
		s.logger.Error("scheduled run failed", "status", resp.StatusCode, "body", resp.Body)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
