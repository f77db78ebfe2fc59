package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"aipipeline/internal/middleware"
)

// DeliveryConsumer consumes completion events off NSQ and records the
// notification in the delivery log. This stands in for an email or
// webhook sender; the event contract stays the same either way.
type DeliveryConsumer struct {
	log *DeliveryLog
}

func NewDeliveryConsumer(log *DeliveryLog) *DeliveryConsumer {
	return &DeliveryConsumer{log: log}
}

func (c *DeliveryConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var event CompletionEvent
	if err := json.Unmarshal(m.Body, &event); err != nil {
		slog.Error("invalid completion event, dropping", "error", err)
		return nil // Don't retry invalid messages
	}

	correlationID := event.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if event.Recipient == "" {
		slog.ErrorContext(ctx, "completion event missing recipient, dropping")
		return nil
	}

	c.log.Log(DeliveryEntry{
		Timestamp:     time.Now().UTC(),
		Recipient:     event.Recipient,
		SourceLabel:   event.SourceLabel,
		SuccessCount:  event.SuccessCount,
		ErrorCount:    event.ErrorCount,
		CorrelationID: correlationID,
	})

	slog.InfoContext(ctx, "notification delivered", "recipient", event.Recipient, "success_count", event.SuccessCount, "error_count", event.ErrorCount)
	return nil
}
