package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Devpradp/TA-Chatbot/features/ask"
	"github.com/Devpradp/TA-Chatbot/features/lecture"
	"github.com/Devpradp/TA-Chatbot/features/stats"
	"github.com/Devpradp/TA-Chatbot/internal/config"
	"github.com/Devpradp/TA-Chatbot/internal/corpus"
	"github.com/Devpradp/TA-Chatbot/internal/ingest"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
	"github.com/Devpradp/TA-Chatbot/internal/retrieval"
)

const shutdownTimeout = 10 * time.Second

var ErrMissingDependency = errors.New("missing dependency")

// Embedder satisfies both the ingest and retrieval embedders.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type App struct {
	Handler   http.Handler
	Corpus    *corpus.Corpus
	Ingest    *ingest.Service
	Retrieval *retrieval.Service
	port      int
}

func New(cfg *config.Config, deps *Dependencies) (*App, error) {
	if deps == nil || deps.Embedder == nil || deps.Completer == nil {
		return nil, fmt.Errorf("%w: embedder and completer are required", ErrMissingDependency)
	}

	// The corpus lives for the process lifetime.
	store := corpus.New()

	// Feature: Lecture upload
	ingestService := ingest.NewService(deps.Embedder, store, deps.Publisher, ingest.Options{
		WordLimit:   cfg.ChunkWordLimit,
		Concurrency: cfg.EmbedConcurrency,
	})
	lectureHandler := lecture.NewHandler(ingestService, cfg.MaxUploadBytes())

	// Feature: Ask
	retrievalService := retrieval.NewService(deps.Embedder, deps.Completer, store, cfg.RetrievalTopK, deps.QueryLogger)
	askHandler := ask.NewHandler(retrievalService)

	// Feature: Stats
	statsHandler := stats.NewHandler(store)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, map[string]string{"message": "Backend running!"})
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("POST /upload_slides", lectureHandler.Upload)
	mux.HandleFunc("POST /ask", askHandler.Ask)
	mux.HandleFunc("GET /stats", statsHandler.GetStats)

	// CORS sits outside the mux so preflight requests never reach method routing.
	handler := middleware.CORS(cfg.CORSAllowedOrigin)(middleware.CorrelationID(middleware.Recover(mux)))

	return &App{
		Handler:   handler,
		Corpus:    store,
		Ingest:    ingestService,
		Retrieval: retrievalService,
		port:      cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
