package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Devpradp/TA-Chatbot/internal/apperr"
	"github.com/Devpradp/TA-Chatbot/internal/config"
	"github.com/Devpradp/TA-Chatbot/internal/corpus"
	"github.com/Devpradp/TA-Chatbot/internal/deck"
	"github.com/Devpradp/TA-Chatbot/internal/ingest"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
	"github.com/Devpradp/TA-Chatbot/internal/testutils"
)

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

func lectureDeck(t *testing.T) []byte {
	return testutils.BuildPPTX(t, []testutils.SlideFixture{
		{Shapes: []string{testutils.TextShape("Intro"), testutils.TextShape("Welcome")}, Notes: testutils.Notes("greet everyone")},
		{Shapes: []string{testutils.TextShape("Sorting"), testutils.TextShape("Merge sort"), testutils.TextShape("Quick sort")}},
		{Shapes: []string{testutils.PictureShape()}},
	}, nil)
}

func TestService_Ingest(t *testing.T) {
	store := corpus.New()
	embedder := testutils.NewFakeEmbedder(4)
	svc := ingest.NewService(embedder, store, nil, ingest.Options{})

	res, err := svc.Ingest(context.Background(), ingest.Request{Filename: "week1.pptx", Data: lectureDeck(t)})
	require.NoError(t, err)

	assert.Equal(t, 3, res.SlidesProcessed)
	// Intro, Welcome, notes, Sorting, Merge sort, Quick sort, "slide 3"
	assert.Equal(t, 7, res.ChunksAdded)
	assert.Equal(t, "unknown", res.Document.CourseID)
	assert.Equal(t, "week1", res.Document.LectureTitle)
	assert.Equal(t, 7, embedder.Calls())
	assert.Equal(t, corpus.Stats{Chunks: 7, Vectors: 7, Dimension: 4}, store.Stats())

	// Chunk texts land next to their own vectors.
	results, err := store.Search(testutils.Vector("Merge sort", 4), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Merge sort", results[0].Text)
	assert.Equal(t, float32(0), results[0].Distance)
}

func TestService_Ingest_PaginatedDocument(t *testing.T) {
	store := corpus.New()
	svc := ingest.NewService(testutils.NewFakeEmbedder(4), store, nil, ingest.Options{})

	data := testutils.BuildPDF(t,
		[]testutils.PDFText{
			{X: 72, Y: 700, Size: 24, Text: "Single line title"},
			{X: 72, Y: 650, Size: 12, Text: "body paragraph"},
		},
		nil,
		[]testutils.PDFText{
			{X: 72, Y: 700, Size: 12, Text: "Left column"},
			{X: 350, Y: 700, Size: 12, Text: "Right column"},
		},
	)

	res, err := svc.Ingest(context.Background(), ingest.Request{Filename: "Handout.PDF", Data: data, CourseID: "CS101"})
	require.NoError(t, err)

	assert.Equal(t, deck.SourceTypePaginated, res.Document.SourceType)
	assert.Equal(t, "Handout", res.Document.LectureTitle)
	assert.Equal(t, 3, res.SlidesProcessed)
	// Single line title, body paragraph, "Page 2", Left column, Right column
	assert.Equal(t, 5, res.ChunksAdded)
	assert.Equal(t, 5, store.Len())

	results, err := store.Search(testutils.Vector("Page 2", 4), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Page 2", results[0].Text)
}

func TestService_Ingest_TwiceDoublesCorpus(t *testing.T) {
	store := corpus.New()
	svc := ingest.NewService(testutils.NewFakeEmbedder(4), store, nil, ingest.Options{})
	data := lectureDeck(t)

	first, err := svc.Ingest(context.Background(), ingest.Request{Filename: "week1.pptx", Data: data})
	require.NoError(t, err)
	single := store.Stats()

	second, err := svc.Ingest(context.Background(), ingest.Request{Filename: "week1.pptx", Data: data})
	require.NoError(t, err)

	assert.Equal(t, first.ChunksAdded, second.ChunksAdded)
	doubled := store.Stats()
	assert.Equal(t, 2*single.Chunks, doubled.Chunks)
	assert.Equal(t, 2*single.Vectors, doubled.Vectors)
}

func TestService_Ingest_EmbedFailureLeavesCorpusUntouched(t *testing.T) {
	store := corpus.New()
	embedder := testutils.NewFakeEmbedder(4)
	svc := ingest.NewService(embedder, store, nil, ingest.Options{Concurrency: 2})

	_, err := svc.Ingest(context.Background(), ingest.Request{Filename: "seed.pptx", Data: testutils.SimplePPTX(t, []string{"Seed"})})
	require.NoError(t, err)
	before := store.Stats()

	embedder.FailOn["Quick sort"] = true
	res, err := svc.Ingest(context.Background(), ingest.Request{Filename: "week1.pptx", Data: lectureDeck(t)})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, apperr.ErrExternalService)
	assert.ErrorIs(t, err, testutils.ErrFakeEmbed)
	assert.Equal(t, before, store.Stats())
}

func TestService_Ingest_ExtractionErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     []byte
		wantErr  error
	}{
		{"Unsupported Extension", "notes.txt", []byte("hello"), deck.ErrUnsupportedFormat},
		{"Corrupt Presentation", "broken.pptx", []byte("not a zip"), deck.ErrExtraction},
		{"Corrupt PDF", "broken.pdf", []byte("not a pdf"), deck.ErrExtraction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := corpus.New()
			embedder := testutils.NewFakeEmbedder(4)
			svc := ingest.NewService(embedder, store, nil, ingest.Options{})

			_, err := svc.Ingest(context.Background(), ingest.Request{Filename: tt.filename, Data: tt.data})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, embedder.Calls())
			assert.True(t, store.IsEmpty())
		})
	}
}

func TestService_Ingest_DimensionMismatchRejected(t *testing.T) {
	store := corpus.New()
	require.NoError(t, store.Append([]float32{1, 2}, "existing"))

	svc := ingest.NewService(testutils.NewFakeEmbedder(3), store, nil, ingest.Options{})
	_, err := svc.Ingest(context.Background(), ingest.Request{Filename: "week1.pptx", Data: lectureDeck(t)})
	assert.ErrorIs(t, err, corpus.ErrDimensionMismatch)
	assert.Equal(t, 1, store.Len())
}

func TestService_Ingest_WordLimit(t *testing.T) {
	long := strings.TrimSpace(strings.Repeat("word ", 25))
	store := corpus.New()
	svc := ingest.NewService(testutils.NewFakeEmbedder(2), store, nil, ingest.Options{WordLimit: 10})

	res, err := svc.Ingest(context.Background(), ingest.Request{Filename: "long.pptx", Data: testutils.SimplePPTX(t, []string{"Title", long})})
	require.NoError(t, err)
	// Title plus 10 + 10 + 5 words.
	assert.Equal(t, 4, res.ChunksAdded)
}

func TestService_Ingest_PublishesEvent(t *testing.T) {
	store := corpus.New()
	pub := new(MockPublisher)

	var body []byte
	pub.On("Publish", config.TopicLectureIngested, mock.Anything).
		Run(func(args mock.Arguments) { body = args.Get(1).([]byte) }).
		Return(nil).Once()

	svc := ingest.NewService(testutils.NewFakeEmbedder(4), store, pub, ingest.Options{})
	ctx := middleware.WithCorrelationID(context.Background(), "corr-123")

	_, err := svc.Ingest(ctx, ingest.Request{Filename: "week1.pptx", Data: lectureDeck(t), CourseID: "CS101", LectureTitle: "Sorting"})
	require.NoError(t, err)
	pub.AssertExpectations(t)

	var evt ingest.Event
	require.NoError(t, json.Unmarshal(body, &evt))
	assert.NotEmpty(t, evt.IngestID)
	assert.Equal(t, "CS101", evt.CourseID)
	assert.Equal(t, "Sorting", evt.LectureTitle)
	assert.Equal(t, "week1.pptx", evt.SourceFile)
	assert.Equal(t, deck.SourceTypePresentation, evt.SourceType)
	assert.Equal(t, 3, evt.Slides)
	assert.Equal(t, 7, evt.Chunks)
	assert.Equal(t, 7, evt.CorpusSize)
	assert.Equal(t, "corr-123", evt.CorrelationID)
	assert.False(t, evt.IngestedAt.IsZero())
}

func TestService_Ingest_PublishFailureIsNotFatal(t *testing.T) {
	store := corpus.New()
	pub := new(MockPublisher)
	pub.On("Publish", config.TopicLectureIngested, mock.Anything).Return(errors.New("nsqd down"))

	svc := ingest.NewService(testutils.NewFakeEmbedder(4), store, pub, ingest.Options{})
	res, err := svc.Ingest(context.Background(), ingest.Request{Filename: "week1.pptx", Data: lectureDeck(t)})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ChunksAdded)
	assert.Equal(t, 7, store.Len())
}

func TestService_Ingest_ConcurrentUploads(t *testing.T) {
	store := corpus.New()
	svc := ingest.NewService(testutils.NewFakeEmbedder(4), store, nil, ingest.Options{Concurrency: 3})

	const uploads = 8
	decks := make([][]byte, uploads)
	for i := range decks {
		decks[i] = testutils.SimplePPTX(t,
			[]string{fmt.Sprintf("Deck %d", i), "alpha", "beta"},
			[]string{fmt.Sprintf("Deck %d end", i)},
		)
	}

	var wg sync.WaitGroup
	for i, data := range decks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ingest(context.Background(), ingest.Request{Filename: fmt.Sprintf("d%d.pptx", i), Data: data})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, corpus.Stats{Chunks: uploads * 4, Vectors: uploads * 4, Dimension: 4}, store.Stats())
}
