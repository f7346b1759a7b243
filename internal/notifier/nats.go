package notifier

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/amishk599/jobenrich/internal/model"
)

// DefaultSubject is where run summaries are published.
const DefaultSubject = "jobenrich.runs"

const connectTimeout = 10 * time.Second

// Ensure NATSNotifier implements model.Notifier.
var _ model.Notifier = (*NATSNotifier)(nil)

// NATSNotifier publishes each run summary as JSON on a NATS subject so other
// services can react to new listings.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to natsURL. An empty subject uses DefaultSubject.
func NewNATSNotifier(natsURL, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name("jobenrich"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return newNATSNotifier(nc, subject, logger), nil
}

func newNATSNotifier(nc *nats.Conn, subject string, logger *slog.Logger) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{nc: nc, subject: subject, logger: logger}
}

// Notify publishes the summary and flushes so the message is on the wire
// before a one-shot process exits.
func (n *NATSNotifier) Notify(s model.RunSummary) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publishing to NATS: %w", err)
	}
	if err := n.nc.FlushTimeout(connectTimeout); err != nil {
		return fmt.Errorf("flushing NATS connection: %w", err)
	}
	n.logger.Debug("published run summary", "run_id", s.RunID, "subject", n.subject)
	return nil
}

// Close drains and closes the connection.
func (n *NATSNotifier) Close() error {
	if n.nc == nil {
		return nil
	}
	return n.nc.Drain()
}
