package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates a file format no parser handles.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrBuildInProgress indicates a corpus build is already running.
	// Concurrent builds are rejected, never queued.
	ErrBuildInProgress = errors.New("build already in progress")

	// ErrIndexNotBuilt indicates no index generation has been committed yet.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrEmbeddingUnavailable indicates the embedding backend failed or is unreachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrTransient marks failures of external services that may succeed on retry:
	// network errors, timeouts, HTTP 429 and 5xx responses.
	ErrTransient = errors.New("transient failure")

	// Taxonomy sentinels. Each typed error below matches its sentinel with errors.Is.

	// ErrParse is matched by *ParseError.
	ErrParse = errors.New("parse failed")

	// ErrIndexBuild is matched by *IndexBuildError.
	ErrIndexBuild = errors.New("index build failed")

	// ErrRerankService is matched by *RerankServiceError.
	ErrRerankService = errors.New("rerank service failed")

	// ErrGlossaryFormat is matched by *GlossaryFormatError.
	ErrGlossaryFormat = errors.New("malformed glossary file")
)

// ParseError is a per-file, recoverable failure. The file is skipped and
// the build continues.
type ParseError struct {
	// Path is the source file that failed.
	Path string
	// Err is the underlying cause.
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// IndexBuildError aborts a build. The previously committed index keeps serving.
type IndexBuildError struct {
	// Stage names the step that failed (embed, persist, commit).
	Stage string
	// Err is the underlying cause.
	Err error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("index build (%s): %v", e.Stage, e.Err)
}

func (e *IndexBuildError) Unwrap() error { return e.Err }

// Is reports whether target is ErrIndexBuild.
func (e *IndexBuildError) Is(target error) bool { return target == ErrIndexBuild }

// RerankServiceError is returned by rerank backends when the remote model is
// unreachable or answers with a non-2xx status. Retrieval degrades to the
// vector ranking for that query only.
type RerankServiceError struct {
	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

func (e *RerankServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("rerank service: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("rerank service: %v", e.Err)
}

func (e *RerankServiceError) Unwrap() error { return e.Err }

// Is reports whether target is ErrRerankService.
func (e *RerankServiceError) Is(target error) bool { return target == ErrRerankService }

// GlossaryFormatError rejects an uploaded glossary file. Nothing from the
// file is applied.
type GlossaryFormatError struct {
	// Filename is the uploaded file name.
	Filename string
	// Line is the 1-based line (CSV) or 0 when not applicable.
	Line int
	// Reason describes what is wrong.
	Reason string
}

func (e *GlossaryFormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("glossary %s: line %d: %s", e.Filename, e.Line, e.Reason)
	}
	return fmt.Sprintf("glossary %s: %s", e.Filename, e.Reason)
}

// Is reports whether target is ErrGlossaryFormat.
func (e *GlossaryFormatError) Is(target error) bool { return target == ErrGlossaryFormat }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
