package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"aipipeline/internal/middleware"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Notifier hands completion events to the message broker. Publishing
// is the whole contract: the broker's consumers own actual delivery.
type Notifier struct {
	pub   EventPublisher
	topic string
}

func NewNotifier(pub EventPublisher, topic string) *Notifier {
	return &Notifier{pub: pub, topic: topic}
}

func (n *Notifier) NotifyCompletion(ctx context.Context, recipient, sourceLabel string, successCount, errorCount int) error {
	event := CompletionEvent{
		Recipient:     recipient,
		SourceLabel:   sourceLabel,
		SuccessCount:  successCount,
		ErrorCount:    errorCount,
		CorrelationID: middleware.GetCorrelationID(ctx),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := n.pub.Publish(n.topic, body); err != nil {
		slog.ErrorContext(ctx, "failed to publish completion event", "topic", n.topic, "error", err)
		return err
	}

	slog.InfoContext(ctx, "published completion event", "topic", n.topic, "recipient", recipient, "success_count", successCount, "error_count", errorCount)
	return nil
}
