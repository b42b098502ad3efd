package stats

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Devpradp/TA-Chatbot/internal/corpus"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
)

type CorpusStats interface {
	Stats() corpus.Stats
}

type Handler struct {
	corpus CorpusStats
}

func NewHandler(c CorpusStats) *Handler {
	return &Handler{corpus: c}
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	s := h.corpus.Stats()
	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID, "chunks", s.Chunks)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": s}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
