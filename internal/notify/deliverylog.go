package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type DeliveryEntry struct {
	Timestamp     time.Time `json:"timestamp"`
	Recipient     string    `json:"recipient"`
	SourceLabel   string    `json:"source_label,omitempty"`
	SuccessCount  int       `json:"success_count"`
	ErrorCount    int       `json:"error_count"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// DeliveryLog is the append-only record of dispatched notifications.
type DeliveryLog struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewDeliveryLog(w io.Writer) *DeliveryLog {
	return &DeliveryLog{writer: w}
}

func NewFileDeliveryLog(path string) (*DeliveryLog, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	f, err := os.OpenFile(cleanPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, f)
	return NewDeliveryLog(mw), nil
}

func (l *DeliveryLog) Log(entry DeliveryEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(entry); err != nil {
		slog.Error("failed to write delivery log entry", "error", err)
	}
}
