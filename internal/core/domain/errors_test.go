package domain

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrBuildInProgress", ErrBuildInProgress},
		{"ErrIndexNotBuilt", ErrIndexNotBuilt},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrTransient", ErrTransient},
		{"ErrParse", ErrParse},
		{"ErrIndexBuild", ErrIndexBuild},
		{"ErrRerankService", ErrRerankService},
		{"ErrGlossaryFormat", ErrGlossaryFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrBuildInProgress(t *testing.T) {
	assert.Equal(t, "build already in progress", ErrBuildInProgress.Error())
	wrapped := fmt.Errorf("build: %w", ErrBuildInProgress)
	assert.True(t, errors.Is(wrapped, ErrBuildInProgress))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
}

func TestParseError(t *testing.T) {
	err := &ParseError{Path: "a/report.docx", Err: io.ErrUnexpectedEOF}

	assert.Equal(t, "parse a/report.docx: unexpected EOF", err.Error())
	assert.True(t, errors.Is(err, ErrParse))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.False(t, errors.Is(err, ErrIndexBuild))

	var pe *ParseError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &pe))
	assert.Equal(t, "a/report.docx", pe.Path)
}

func TestParseError_Transient(t *testing.T) {
	err := &ParseError{Path: "x.pdf", Err: fmt.Errorf("layout engine: %w", ErrTransient)}
	assert.True(t, IsTransient(err))

	formatErr := &ParseError{Path: "x.pdf", Err: errors.New("not a zip file")}
	assert.False(t, IsTransient(formatErr))
}

func TestIndexBuildError(t *testing.T) {
	err := &IndexBuildError{Stage: "persist", Err: errors.New("disk full")}

	assert.Equal(t, "index build (persist): disk full", err.Error())
	assert.True(t, errors.Is(err, ErrIndexBuild))
	assert.False(t, errors.Is(err, ErrParse))
}

func TestRerankServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  *RerankServiceError
		want string
	}{
		{"with status", &RerankServiceError{StatusCode: 503, Err: errors.New("unavailable")}, "rerank service: status 503: unavailable"},
		{"transport", &RerankServiceError{Err: errors.New("connection refused")}, "rerank service: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, errors.Is(tt.err, ErrRerankService))
		})
	}
}

func TestGlossaryFormatError(t *testing.T) {
	withLine := &GlossaryFormatError{Filename: "terms.csv", Line: 3, Reason: "expected 2 columns, got 1"}
	assert.Equal(t, "glossary terms.csv: line 3: expected 2 columns, got 1", withLine.Error())
	assert.True(t, errors.Is(withLine, ErrGlossaryFormat))

	noLine := &GlossaryFormatError{Filename: "terms.json", Reason: "invalid JSON"}
	assert.Equal(t, "glossary terms.json: invalid JSON", noLine.Error())
}
