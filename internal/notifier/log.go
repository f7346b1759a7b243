package notifier

import (
	"log/slog"

	"github.com/amishk599/jobenrich/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes run summaries to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each summary via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the summary, at error level for runs that did not succeed.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(s model.RunSummary) error {
	args := []any{
		"run_id", s.RunID,
		"status", s.Status,
		"scraped", s.Scraped,
		"requested", s.Requested,
		"results", s.Results,
		"dropped", s.Dropped,
		"inserted", s.Inserted,
		"duration", s.Duration(),
	}
	if s.BatchID != "" {
		args = append(args, "batch_id", s.BatchID)
	}
	if s.Status != model.RunStatusSucceeded {
		args = append(args, "error_kind", s.ErrorKind, "error", s.Error)
		n.logger.Error("enrichment run finished", args...)
		return nil
	}
	n.logger.Info("enrichment run finished", args...)
	return nil
}
