package ask

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Devpradp/TA-Chatbot/internal/apperr"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
)

// maxBodyBytes bounds the JSON body of a question.
const maxBodyBytes = 64 << 10

type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type Handler struct {
	answerer Answerer
}

func NewHandler(a Answerer) *Handler {
	return &Handler{answerer: a}
}

type AskRequest struct {
	Question string `json:"question"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

// Ask accepts the question as a query parameter or as a JSON body. The query
// parameter wins when both are present.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	question := r.URL.Query().Get("question")
	if question == "" && r.Body != nil {
		var req AskRequest
		err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			h.writeError(ctx, w, apperr.CodeValidation, "Invalid JSON body", http.StatusBadRequest)
			return
		}
		question = req.Question
	}

	slog.InfoContext(ctx, "answering question", "chars", len(question))

	answer, err := h.answerer.Answer(ctx, question)
	if err != nil {
		code, status := apperr.Classify(err)
		slog.ErrorContext(ctx, "answer failed", "code", code, "error", err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "Failed to answer question"
		}
		h.writeError(ctx, w, code, message, status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": AskResponse{Answer: answer}}); err != nil {
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
		slog.Error("failed to encode error response", "error", err)
	}
}
