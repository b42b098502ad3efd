package lecture

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Devpradp/TA-Chatbot/internal/apperr"
	"github.com/Devpradp/TA-Chatbot/internal/corpus"
	"github.com/Devpradp/TA-Chatbot/internal/deck"
	"github.com/Devpradp/TA-Chatbot/internal/ingest"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
)

type MockIngester struct{ mock.Mock }

func (m *MockIngester) Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Result), args.Error(1)
}

func uploadRequest(t *testing.T, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload_slides", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHandler_Upload_Success(t *testing.T) {
	m := new(MockIngester)
	m.On("Ingest", mock.Anything, ingest.Request{
		Filename:     "week1.pptx",
		Data:         []byte("deck-bytes"),
		CourseID:     "CS101",
		LectureTitle: "Intro",
	}).Return(&ingest.Result{
		Document:        &deck.Document{CourseID: "CS101", LectureTitle: "Intro", SourceFile: "week1.pptx"},
		SlidesProcessed: 3,
		ChunksAdded:     7,
	}, nil)

	h := NewHandler(m, 1<<20)
	req := uploadRequest(t, "week1.pptx", []byte("deck-bytes"), map[string]string{
		"course_id":     "CS101",
		"lecture_title": "Intro",
	})
	w := httptest.NewRecorder()

	h.Upload(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "received", data["status"])
	assert.Equal(t, "week1.pptx", data["filename"])
	assert.Equal(t, "CS101", data["course_id"])
	assert.Equal(t, "Intro", data["lecture_title"])
	assert.EqualValues(t, 3, data["slides_processed"])
	assert.EqualValues(t, 7, data["chunks_added"])
	m.AssertExpectations(t)
}

func TestHandler_Upload_DefaultsComeFromDocument(t *testing.T) {
	m := new(MockIngester)
	m.On("Ingest", mock.Anything, mock.MatchedBy(func(r ingest.Request) bool {
		return r.CourseID == "" && r.LectureTitle == ""
	})).Return(&ingest.Result{
		Document:        &deck.Document{CourseID: deck.DefaultCourseID, LectureTitle: "week2"},
		SlidesProcessed: 1,
		ChunksAdded:     1,
	}, nil)

	w := httptest.NewRecorder()
	NewHandler(m, 1<<20).Upload(w, uploadRequest(t, "week2.pdf", []byte("%PDF"), nil))

	require.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "unknown", data["course_id"])
	assert.Equal(t, "week2", data["lecture_title"])
}

func TestHandler_Upload_StripsClientDirectories(t *testing.T) {
	m := new(MockIngester)
	m.On("Ingest", mock.Anything, mock.MatchedBy(func(r ingest.Request) bool {
		return r.Filename == "deck.pptx"
	})).Return(&ingest.Result{Document: &deck.Document{}}, nil)

	w := httptest.NewRecorder()
	NewHandler(m, 1<<20).Upload(w, uploadRequest(t, "../../etc/deck.pptx", []byte("x"), nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	m.AssertExpectations(t)
}

func TestHandler_Upload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"Unsupported Format", fmt.Errorf("%w: .docx", deck.ErrUnsupportedFormat), http.StatusUnsupportedMediaType, apperr.CodeUnsupportedFormat},
		{"Extraction Failed", fmt.Errorf("%w: not a zip", deck.ErrExtraction), http.StatusUnprocessableEntity, apperr.CodeExtractionFailed},
		{"Dimension Mismatch", corpus.ErrDimensionMismatch, http.StatusConflict, apperr.CodeDimensionMismatch},
		{"Upstream Failure", fmt.Errorf("%w: timeout", apperr.ErrExternalService), http.StatusBadGateway, apperr.CodeUpstream},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError, apperr.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := new(MockIngester)
			m.On("Ingest", mock.Anything, mock.Anything).Return(nil, tt.err)

			req := uploadRequest(t, "deck.pptx", []byte("x"), nil)
			req = req.WithContext(context.WithValue(req.Context(), middleware.CorrelationKey, "corr-1"))
			w := httptest.NewRecorder()
			NewHandler(m, 1<<20).Upload(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			errObj := body["error"].(map[string]interface{})
			assert.Equal(t, tt.wantCode, errObj["code"])
			assert.Equal(t, "corr-1", body["correlationId"])
		})
	}
}

func TestHandler_Upload_InternalErrorHidesCause(t *testing.T) {
	m := new(MockIngester)
	m.On("Ingest", mock.Anything, mock.Anything).Return(nil, errors.New("secret detail"))

	w := httptest.NewRecorder()
	NewHandler(m, 1<<20).Upload(w, uploadRequest(t, "deck.pptx", []byte("x"), nil))

	assert.NotContains(t, w.Body.String(), "secret detail")
}

func TestHandler_Upload_MissingFile(t *testing.T) {
	m := new(MockIngester)
	w := httptest.NewRecorder()
	NewHandler(m, 1<<20).Upload(w, uploadRequest(t, "", nil, map[string]string{"course_id": "CS101"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	m.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestHandler_Upload_NotMultipart(t *testing.T) {
	m := new(MockIngester)
	req := httptest.NewRequest(http.MethodPost, "/upload_slides", strings.NewReader(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	NewHandler(m, 1<<20).Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errObj := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, apperr.CodeValidation, errObj["code"])
}

func TestHandler_Upload_TooLarge(t *testing.T) {
	m := new(MockIngester)
	w := httptest.NewRecorder()

	NewHandler(m, 64).Upload(w, uploadRequest(t, "deck.pptx", bytes.Repeat([]byte("a"), 4096), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	errObj := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "FILE_TOO_LARGE", errObj["code"])
	m.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}
