package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Devpradp/TA-Chatbot/internal/apperr"
	"github.com/Devpradp/TA-Chatbot/internal/corpus"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
)

const DefaultTopK = 3

// FallbackAnswer is returned without any remote call while the corpus is empty.
const FallbackAnswer = "No lecture slides have been uploaded yet. Upload a slide deck and ask your question again."

const SystemPrompt = "You are a teaching assistant for a university course. " +
	"Answer the student's question using only the lecture material in the provided context. " +
	"If the context does not cover the question, say that the lecture slides do not address it."

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Store interface {
	Search(query []float32, k int) ([]corpus.SearchResult, error)
	IsEmpty() bool
}

type Service struct {
	embedder  Embedder
	completer Completer
	store     Store
	topK      int
	logger    *QueryLogger
}

func NewService(e Embedder, c Completer, s Store, topK int, l *QueryLogger) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Service{embedder: e, completer: c, store: s, topK: topK, logger: l}
}

// Answer grounds a generated answer in the chunks nearest to question.
func (s *Service) Answer(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("%w: question is required", apperr.ErrInvalidInput)
	}

	start := time.Now()
	entry := QueryLogEntry{Query: question, CorrelationID: middleware.GetCorrelationID(ctx)}
	defer func() {
		if s.logger != nil {
			entry.Duration = time.Since(start)
			s.logger.Log(entry)
		}
	}()

	if s.store.IsEmpty() {
		slog.InfoContext(ctx, "corpus is empty, returning fallback answer")
		entry.Fallback = true
		return FallbackAnswer, nil
	}

	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: embed question: %w", apperr.ErrExternalService, err)
	}

	results, err := s.store.Search(vec, s.topK)
	if err != nil {
		return "", fmt.Errorf("search corpus: %w", err)
	}
	entry.NumResults = len(results)
	if len(results) == 0 {
		entry.Fallback = true
		return FallbackAnswer, nil
	}

	contextText := BuildContext(results)
	entry.ContextChars = len(contextText)

	answer, err := s.completer.Complete(ctx, SystemPrompt, UserMessage(contextText, question))
	if err != nil {
		return "", fmt.Errorf("%w: complete: %w", apperr.ErrExternalService, err)
	}
	entry.AnswerChars = len(answer)
	return answer, nil
}

// BuildContext joins result texts in rank order, separated by a blank line.
func BuildContext(results []corpus.SearchResult) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return strings.Join(texts, "\n\n")
}

func UserMessage(contextText, question string) string {
	return "Context:\n" + contextText + "\n\nQuestion: " + question
}
