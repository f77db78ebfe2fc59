package notify_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aipipeline/internal/notify"
)

func TestDeliveryConsumer_HandleMessage(t *testing.T) {
	var buf bytes.Buffer
	consumer := notify.NewDeliveryConsumer(notify.NewDeliveryLog(&buf))

	body, _ := json.Marshal(notify.CompletionEvent{
		Recipient:     "user@example.com",
		SourceLabel:   "manual",
		SuccessCount:  2,
		ErrorCount:    1,
		CorrelationID: "corr-1",
	})
	msg := &nsq.Message{Body: body}

	require.NoError(t, consumer.HandleMessage(msg))

	var entry notify.DeliveryEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "user@example.com", entry.Recipient)
	assert.Equal(t, 2, entry.SuccessCount)
	assert.Equal(t, 1, entry.ErrorCount)
	assert.Equal(t, "corr-1", entry.CorrelationID)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestDeliveryConsumer_InvalidMessage(t *testing.T) {
	var buf bytes.Buffer
	consumer := notify.NewDeliveryConsumer(notify.NewDeliveryLog(&buf))

	msg := &nsq.Message{Body: []byte("invalid json")}

	// Invalid messages are dropped, not requeued
	assert.NoError(t, consumer.HandleMessage(msg))
	assert.Zero(t, buf.Len())
}

func TestDeliveryConsumer_MissingRecipient(t *testing.T) {
	var buf bytes.Buffer
	consumer := notify.NewDeliveryConsumer(notify.NewDeliveryLog(&buf))

	body, _ := json.Marshal(notify.CompletionEvent{SuccessCount: 3})
	msg := &nsq.Message{Body: body}

	assert.NoError(t, consumer.HandleMessage(msg))
	assert.Zero(t, buf.Len())
}

func TestDeliveryConsumer_EmptyBody(t *testing.T) {
	var buf bytes.Buffer
	consumer := notify.NewDeliveryConsumer(notify.NewDeliveryLog(&buf))

	assert.NoError(t, consumer.HandleMessage(&nsq.Message{}))
	assert.Zero(t, buf.Len())
}
