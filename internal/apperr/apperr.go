// Package apperr maps domain errors to the codes and HTTP statuses used in
// error responses.
package apperr

import (
	"errors"
	"net/http"

	"github.com/Devpradp/TA-Chatbot/internal/corpus"
	"github.com/Devpradp/TA-Chatbot/internal/deck"
)

var (
	// ErrExternalService marks a failed or timed out call to the embedding or
	// completion service.
	ErrExternalService = errors.New("external service failure")

	ErrInvalidInput = errors.New("invalid input")
)

const (
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeExtractionFailed  = "EXTRACTION_FAILED"
	CodeDimensionMismatch = "DIMENSION_MISMATCH"
	CodeUpstream          = "UPSTREAM_ERROR"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// Classify returns the error code and HTTP status for err.
func Classify(err error) (string, int) {
	switch {
	case errors.Is(err, deck.ErrUnsupportedFormat):
		return CodeUnsupportedFormat, http.StatusUnsupportedMediaType
	case errors.Is(err, deck.ErrExtraction):
		return CodeExtractionFailed, http.StatusUnprocessableEntity
	case errors.Is(err, corpus.ErrDimensionMismatch):
		return CodeDimensionMismatch, http.StatusConflict
	case errors.Is(err, ErrExternalService):
		return CodeUpstream, http.StatusBadGateway
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation, http.StatusBadRequest
	default:
		return CodeInternal, http.StatusInternalServerError
	}
}
