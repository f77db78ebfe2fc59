package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// ErrNotConfigured is returned when no API key was provided. The
// orchestrator treats it like any other enrichment failure and
// substitutes fallback content.
var ErrNotConfigured = errors.New("gemini api key not configured")

// Analyzer produces a short natural-language analysis and a sentiment
// label for an opaque identifier via Gemini. A zero-value API key
// yields a degraded analyzer whose calls always fail; construction
// never does.
type Analyzer struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

func NewAnalyzer(ctx context.Context, apiKey, model string, rps float64, opts ...option.ClientOption) (*Analyzer, error) {
	a := &Analyzer{model: model}
	if rps > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	if apiKey == "" {
		slog.Warn("gemini api key missing, enrichment runs in fallback mode")
		return a, nil
	}

	opts = append(opts, option.WithAPIKey(apiKey))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	a.client = client
	return a, nil
}

func (a *Analyzer) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *Analyzer) Analyze(ctx context.Context, identifier string) (string, string, error) {
	if a.client == nil {
		return "", "", ErrNotConfigured
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", "", err
		}
	}

	prompt := fmt.Sprintf(`Analyze the identifier %q in 2 sentences. Respond with only JSON: {"analysis": "text", "sentiment": "optimistic|pessimistic|balanced"}`, identifier)

	model := a.client.GenerativeModel(a.model)
	model.SetTemperature(0.3)

	slog.DebugContext(ctx, "requesting analysis", "model", a.model, "identifier", identifier)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.ErrorContext(ctx, "gemini generation failed", "error", err)
		return "", "", err
	}

	text, err := responseText(resp)
	if err != nil {
		return "", "", err
	}

	return parseReply(text)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty generation response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("generation response carries no text parts")
	}
	return sb.String(), nil
}

// parseReply extracts {analysis, sentiment} from the model's reply.
// Models wrap JSON in markdown fences often enough that we cut to the
// outermost braces before unmarshalling.
func parseReply(text string) (string, string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", "", fmt.Errorf("no JSON object in model reply")
	}

	var out struct {
		Analysis  string `json:"analysis"`
		Sentiment string `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return "", "", fmt.Errorf("malformed model reply: %w", err)
	}
	if out.Analysis == "" {
		return "", "", fmt.Errorf("model reply missing analysis")
	}

	return out.Analysis, out.Sentiment, nil
}
