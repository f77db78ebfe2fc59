package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"aipipeline/internal/middleware"
)

type ItemRepo interface {
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	itemRepo ItemRepo
}

func NewHandler(itemRepo ItemRepo) *Handler {
	return &Handler{itemRepo: itemRepo}
}

type StatsResponse struct {
	ProcessedItems int `json:"processed_items"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.itemRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count processed items", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count processed items", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{ProcessedItems: count}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode error response", "error", err)
	}
}
