// Package ingest runs an uploaded deck through extraction, chunking and
// embedding, then appends the result to the corpus in one step.
//
// Embedding calls run concurrently and hold no corpus lock. The corpus is
// touched only by the final AppendBatch, so a failure anywhere before that
// leaves it unchanged.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Devpradp/TA-Chatbot/internal/apperr"
	"github.com/Devpradp/TA-Chatbot/internal/config"
	"github.com/Devpradp/TA-Chatbot/internal/deck"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
	"github.com/Devpradp/TA-Chatbot/internal/text"
)

const defaultConcurrency = 8

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Store interface {
	AppendBatch(vectors [][]float32, texts []string) error
	Len() int
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Request struct {
	Filename     string
	Data         []byte
	CourseID     string
	LectureTitle string
}

type Result struct {
	Document        *deck.Document
	SlidesProcessed int
	ChunksAdded     int
}

// Event is published to config.TopicLectureIngested after a successful append.
type Event struct {
	IngestID      string          `json:"ingest_id"`
	CourseID      string          `json:"course_id"`
	LectureTitle  string          `json:"lecture_title"`
	SourceFile    string          `json:"source_file"`
	SourceType    deck.SourceType `json:"source_type"`
	Slides        int             `json:"slides"`
	Chunks        int             `json:"chunks"`
	CorpusSize    int             `json:"corpus_size"`
	CorrelationID string          `json:"correlation_id"`
	IngestedAt    time.Time       `json:"ingested_at"`
}

type Options struct {
	WordLimit   int
	Concurrency int
}

type Service struct {
	embedder  Embedder
	store     Store
	publisher EventPublisher
	opts      Options
}

// NewService wires the pipeline. publisher may be nil, which disables events.
func NewService(e Embedder, s Store, p EventPublisher, opts Options) *Service {
	if opts.WordLimit <= 0 {
		opts.WordLimit = text.DefaultWordLimit
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	return &Service{embedder: e, store: s, publisher: p, opts: opts}
}

func (s *Service) Ingest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	doc, err := deck.Load(req.Filename, req.Data, deck.Metadata{
		CourseID:     req.CourseID,
		LectureTitle: req.LectureTitle,
	})
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", req.Filename, err)
	}
	slog.InfoContext(ctx, "document extracted",
		"file", doc.SourceFile, "source_type", doc.SourceType, "slides", len(doc.Slides))

	chunks := text.Contents(text.ChunkSlides(doc.Slides, s.opts.WordLimit))
	slog.InfoContext(ctx, "document chunked", "file", doc.SourceFile, "chunks", len(chunks))

	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "chunks embedded", "file", doc.SourceFile, "vectors", len(vectors))

	if err := s.store.AppendBatch(vectors, chunks); err != nil {
		return nil, fmt.Errorf("append chunks: %w", err)
	}
	corpusSize := s.store.Len()
	slog.InfoContext(ctx, "chunks appended",
		"file", doc.SourceFile, "chunks", len(chunks), "corpus_size", corpusSize, "duration", time.Since(start))

	s.publish(ctx, doc, len(chunks), corpusSize)

	return &Result{
		Document:        doc,
		SlidesProcessed: len(doc.Slides),
		ChunksAdded:     len(chunks),
	}, nil
}

// embedAll returns one vector per chunk, index aligned. The first failure
// cancels the calls still in flight.
func (s *Service) embedAll(ctx context.Context, chunks []string) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, chunk)
			if err != nil {
				return fmt.Errorf("%w: embed chunk %d: %w", apperr.ErrExternalService, i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "embedding failed, ingest aborted", "error", err)
		return nil, err
	}
	return vectors, nil
}

func (s *Service) publish(ctx context.Context, doc *deck.Document, chunks, corpusSize int) {
	if s.publisher == nil {
		return
	}

	evt := Event{
		IngestID:      uuid.New().String(),
		CourseID:      doc.CourseID,
		LectureTitle:  doc.LectureTitle,
		SourceFile:    doc.SourceFile,
		SourceType:    doc.SourceType,
		Slides:        len(doc.Slides),
		Chunks:        chunks,
		CorpusSize:    corpusSize,
		CorrelationID: middleware.GetCorrelationID(ctx),
		IngestedAt:    time.Now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal ingest event", "error", err)
		return
	}
	if err := s.publisher.Publish(config.TopicLectureIngested, body); err != nil {
		slog.WarnContext(ctx, "failed to publish ingest event", "topic", config.TopicLectureIngested, "error", err)
	}
}
