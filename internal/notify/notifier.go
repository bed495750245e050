// Package notify delivers terminal-state notifications for monitoring
// requests over a webhook and a Kafka topic. Delivery is fire-and-forget:
// a notification failure is logged and dropped, never surfaced to the
// state machine that produced it.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/dimaa-b/baruch-studyrooms/internal/model"
)

// deliveryTimeout bounds each notification independently of the check
// invocation that triggered it.
const deliveryTimeout = 30 * time.Second

// Notifier fans terminal events out to the configured sinks. Either sink
// may be nil when not configured.
type Notifier struct {
	webhook   *WebhookDispatcher
	publisher *EventPublisher
	logger    *slog.Logger
}

// NewNotifier creates a notifier with the given sinks
func NewNotifier(webhook *WebhookDispatcher, publisher *EventPublisher, logger *slog.Logger) *Notifier {
	return &Notifier{webhook: webhook, publisher: publisher, logger: logger}
}

// RequestTerminal publishes the terminal event for a request. Delivery runs
// in the background on its own deadline; the caller's context only carries
// values, so a finished check never waits on a slow sink.
func (n *Notifier) RequestTerminal(_ context.Context, req *model.MonitoringRequest, outcome string) {
	if n == nil || (n.webhook == nil && n.publisher == nil) {
		return
	}

	event := NewEvent(req, outcome)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if n.webhook != nil {
			if err := n.webhook.Send(ctx, event); err != nil {
				n.logger.Error("terminal event webhook delivery failed",
					"request_id", event.RequestID, "event_type", event.Type, "error", err)
			}
		}
		if n.publisher != nil {
			if err := n.publisher.Publish(ctx, event); err != nil {
				n.logger.Error("terminal event publish failed",
					"request_id", event.RequestID, "event_type", event.Type, "error", err)
			}
		}
	}()
}

// Close releases publisher resources
func (n *Notifier) Close() error {
	if n.publisher != nil {
		return n.publisher.Close()
	}
	return nil
}
