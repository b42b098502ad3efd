package lecture

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/Devpradp/TA-Chatbot/internal/apperr"
	"github.com/Devpradp/TA-Chatbot/internal/ingest"
	"github.com/Devpradp/TA-Chatbot/internal/middleware"
)

// multipartMemory is the part of a form kept in memory; the rest spills to
// temporary files.
const multipartMemory = 32 << 20

type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

type Handler struct {
	ingester       Ingester
	maxUploadBytes int64
}

func NewHandler(i Ingester, maxUploadBytes int64) *Handler {
	return &Handler{ingester: i, maxUploadBytes: maxUploadBytes}
}

type UploadResponse struct {
	Status          string `json:"status"`
	Filename        string `json:"filename"`
	CourseID        string `json:"course_id"`
	LectureTitle    string `json:"lecture_title"`
	SlidesProcessed int    `json:"slides_processed"`
	ChunksAdded     int    `json:"chunks_added"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(ctx, w, "FILE_TOO_LARGE", "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(ctx, w, apperr.CodeValidation, "Expected a multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.WarnContext(ctx, "failed to remove multipart temp files", "error", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(ctx, w, apperr.CodeValidation, "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read upload", "error", err)
		h.writeError(ctx, w, apperr.CodeInternal, "Failed to read file", http.StatusInternalServerError)
		return
	}

	filename := filepath.Base(header.Filename)
	res, err := h.ingester.Ingest(ctx, ingest.Request{
		Filename:     filename,
		Data:         data,
		CourseID:     r.FormValue("course_id"),
		LectureTitle: r.FormValue("lecture_title"),
	})
	if err != nil {
		code, status := apperr.Classify(err)
		slog.ErrorContext(ctx, "ingest failed", "file", filename, "code", code, "error", err) // #nosec G706 -- filename is reduced to its base name
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "Failed to ingest lecture"
		}
		h.writeError(ctx, w, code, message, status)
		return
	}

	resp := UploadResponse{
		Status:          "received",
		Filename:        filename,
		CourseID:        res.Document.CourseID,
		LectureTitle:    res.Document.LectureTitle,
		SlidesProcessed: res.SlidesProcessed,
		ChunksAdded:     res.ChunksAdded,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
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
		slog.Error("failed to encode error response", "error", err)
	}
}
