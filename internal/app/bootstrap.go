package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Devpradp/TA-Chatbot/internal/adapter/gemini"
	"github.com/Devpradp/TA-Chatbot/internal/adapter/nsq"
	"github.com/Devpradp/TA-Chatbot/internal/adapter/resilience"
	"github.com/Devpradp/TA-Chatbot/internal/config"
	"github.com/Devpradp/TA-Chatbot/internal/ingest"
	"github.com/Devpradp/TA-Chatbot/internal/retrieval"
)

// Dependencies are the external collaborators the App is wired from.
// Publisher may be nil, which disables ingest events.
type Dependencies struct {
	Embedder    Embedder
	Completer   retrieval.Completer
	Publisher   ingest.EventPublisher
	QueryLogger *retrieval.QueryLogger

	closers []func() error
}

func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Gemini
	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("gemini client error: %w", err)
	}

	policy := ResiliencePolicy(cfg)
	deps := &Dependencies{
		Embedder: resilience.NewEmbedder(
			client.Embedder(cfg.EmbeddingModel),
			resilience.NewGuard("embedding", policy),
		),
		Completer: resilience.NewCompleter(
			client.Completer(cfg.CompletionModel, cfg.CompletionTemperature),
			resilience.NewGuard("completion", policy),
		),
		QueryLogger: NewQueryLogger(cfg.QueryLogPath),
	}
	deps.closers = append(deps.closers, client.Close, deps.QueryLogger.Close)

	// NSQ Producer
	if cfg.NSQDHost != "" {
		producer, err := nsq.NewProducer(cfg.NSQDHost, logger)
		if err != nil {
			_ = deps.Close()
			return nil, err
		}
		if err := producer.Ping(); err != nil {
			slog.Warn("nsqd not reachable, ingest events will fail until it is", "addr", cfg.NSQDHost, "error", err)
		}
		deps.Publisher = producer
		deps.closers = append(deps.closers, func() error {
			producer.Stop()
			return nil
		})
	}

	return deps, nil
}

// Close releases clients in reverse order of creation.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func ResiliencePolicy(cfg *config.Config) resilience.Policy {
	return resilience.Policy{
		Timeout:          cfg.ExternalCallTimeout(),
		MaxAttempts:      cfg.RetryMaxAttempts,
		InitialInterval:  time.Duration(cfg.RetryInitialIntervalMs) * time.Millisecond,
		MaxInterval:      time.Duration(cfg.RetryMaxIntervalMs) * time.Millisecond,
		RateLimit:        cfg.RateLimitRPS,
		Burst:            cfg.RateLimitBurst,
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      time.Duration(cfg.BreakerOpenSeconds) * time.Second,
	}
}

// NewQueryLogger writes to path, or to stdout alone when the file cannot be
// opened.
func NewQueryLogger(path string) *retrieval.QueryLogger {
	queryLogger, err := retrieval.NewFileQueryLogger(path)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		return retrieval.NewQueryLogger(os.Stdout)
	}
	return queryLogger
}
