// Package httpapi exposes the corpus build, retrieval, viewer and glossary
// operations over HTTP using echo.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// Missing-port errors returned by NewServer.
var (
	ErrMissingBuilder   = errors.New("httpapi: corpus builder is required")
	ErrMissingRetriever = errors.New("httpapi: retriever is required")
	ErrMissingViewer    = errors.New("httpapi: corpus viewer is required")
	ErrMissingGlossary  = errors.New("httpapi: glossary service is required")
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error    string `json:"error"`
	Filename string `json:"filename,omitempty"`
	Line     int    `json:"line,omitempty"`
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBuildInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrGlossaryFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with the status from statusFor.
func writeError(c echo.Context, err error) error {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var ferr *domain.GlossaryFormatError
	if errors.As(err, &ferr) {
		body.Error = ferr.Reason
		body.Filename = ferr.Filename
		body.Line = ferr.Line
	}
	if status >= http.StatusInternalServerError {
		logger.Warn("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, body)
}
