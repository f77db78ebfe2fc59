package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sentiment labels the enrichment service may assign. Anything outside
// this set collapses to SentimentBalanced.
const (
	SentimentOptimistic  = "optimistic"
	SentimentPessimistic = "pessimistic"
	SentimentBalanced    = "balanced"
)

// FallbackAnalysis is substituted verbatim whenever enrichment fails.
const FallbackAnalysis = "Unique identifier processed through AI pipeline."

// defaultCallTimeout bounds each external call so a hung dependency
// cannot stall the batch.
const defaultCallTimeout = 10 * time.Second

type Request struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

type ProcessedItem struct {
	Original  string `json:"original"`
	Analysis  string `json:"analysis"`
	Sentiment string `json:"sentiment"`
	Stored    bool   `json:"stored"`
	Timestamp string `json:"timestamp"`
}

type Response struct {
	Items            []ProcessedItem `json:"items"`
	NotificationSent bool            `json:"notificationSent"`
	ProcessedAt      string          `json:"processedAt"`
	Errors           []string        `json:"errors"`
}

// Record is one persisted row. The table is append-only; rows are
// never updated or deleted.
type Record struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"identifier"`
	Analysis    string    `json:"analysis"`
	Sentiment   string    `json:"sentiment"`
	SourceLabel string    `json:"source_label"`
	ProcessedAt time.Time `json:"processed_at"`
}

type IdentifierSource interface {
	Fetch(ctx context.Context) (string, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, identifier string) (analysis, sentiment string, err error)
}

type Repository interface {
	Save(ctx context.Context, rec *Record) error
	List(ctx context.Context, limit int) ([]Record, error)
	Count(ctx context.Context) (int, error)
}

type Notifier interface {
	NotifyCompletion(ctx context.Context, recipient, sourceLabel string, successCount, errorCount int) error
}

type Service struct {
	ids         IdentifierSource
	analyzer    Analyzer
	repo        Repository
	notifier    Notifier
	batchSize   int
	callTimeout time.Duration
}

func NewService(ids IdentifierSource, analyzer Analyzer, repo Repository, notifier Notifier, batchSize int, callTimeout time.Duration) *Service {
	if batchSize <= 0 {
		batchSize = 3
	}
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &Service{
		ids:         ids,
		analyzer:    analyzer,
		repo:        repo,
		notifier:    notifier,
		batchSize:   batchSize,
		callTimeout: callTimeout,
	}
}

// Run drives one fetch/enrich/persist/notify cycle. Each external call
// has its own failure boundary; degraded dependencies show up as
// fallback content, stored=false flags and entries in Errors, never as
// a failed request.
func (s *Service) Run(ctx context.Context, req Request) Response {
	// Acquire identifiers. Failed attempts are skipped, so the batch
	// may come up short; it is never padded with placeholders.
	identifiers := make([]string, 0, s.batchSize)
	errs := make([]string, 0)
	for attempt := 1; attempt <= s.batchSize; attempt++ {
		fetchCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		id, err := s.ids.Fetch(fetchCtx)
		cancel()
		if err != nil {
			slog.WarnContext(ctx, "identifier fetch failed", "attempt", attempt, "error", err)
			errs = append(errs, fmt.Sprintf("identifier fetch attempt %d failed: %v", attempt, err))
			continue
		}
		identifiers = append(identifiers, id)
	}
	if len(identifiers) == 0 {
		slog.WarnContext(ctx, "no identifiers acquired, returning empty batch")
	}

	items := make([]ProcessedItem, 0, len(identifiers))
	for _, id := range identifiers {
		items = append(items, s.processOne(ctx, req, id))
	}

	// Dispatch-and-forget: a publish failure never reaches the caller.
	if err := s.notifier.NotifyCompletion(ctx, req.Email, req.Source, len(items), len(errs)); err != nil {
		slog.ErrorContext(ctx, "completion notification failed", "error", err)
	}

	return Response{
		Items:            items,
		NotificationSent: true,
		ProcessedAt:      time.Now().UTC().Format(time.RFC3339),
		Errors:           errs,
	}
}

func (s *Service) processOne(ctx context.Context, req Request, identifier string) ProcessedItem {
	enrichCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	analysis, sentiment, err := s.analyzer.Analyze(enrichCtx, identifier)
	cancel()
	if err != nil {
		slog.WarnContext(ctx, "enrichment failed, using fallback", "identifier", identifier, "error", err)
		analysis = FallbackAnalysis
		sentiment = SentimentBalanced
	}
	sentiment = normalizeSentiment(sentiment)

	now := time.Now().UTC()
	rec := &Record{
		Identifier:  identifier,
		Analysis:    analysis,
		Sentiment:   sentiment,
		SourceLabel: req.Source,
		ProcessedAt: now,
	}

	stored := true
	saveCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	if err := s.repo.Save(saveCtx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to store processed item", "identifier", identifier, "error", err)
		stored = false
	}
	cancel()

	return ProcessedItem{
		Original:  identifier,
		Analysis:  analysis,
		Sentiment: sentiment,
		Stored:    stored,
		Timestamp: now.Format(time.RFC3339),
	}
}

// Recent returns the most recently stored records, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.List(ctx, limit)
}

func normalizeSentiment(label string) string {
	switch label {
	case SentimentOptimistic, SentimentPessimistic, SentimentBalanced:
		return label
	}
	return SentimentBalanced
}
