package notify

// CompletionEvent is published to NSQ when a pipeline run finishes.
// Delivery to the requester happens downstream; the response path
// never waits on it.
type CompletionEvent struct {
	Recipient     string `json:"recipient"`
	SourceLabel   string `json:"source_label,omitempty"`
	SuccessCount  int    `json:"success_count"`
	ErrorCount    int    `json:"error_count"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
