package driven

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// ParseRequest is one file to parse and where its side outputs go.
type ParseRequest struct {
	// Source is the file to parse.
	Source domain.SourceDocument

	// ImageDir is the directory for this document's extracted images.
	ImageDir string

	// ImageLinkPrefix is prepended to image file names in Markdown links,
	// e.g. "images/<document id>".
	ImageLinkPrefix string
}

// Parser converts one source file into normalised Markdown.
// Each variant handles a fixed set of formats.
type Parser interface {
	// Formats returns the formats this parser handles.
	Formats() []domain.Format

	// Parse converts the file. Errors are per-file and never abort a build.
	Parse(ctx context.Context, req ParseRequest) (*domain.ParsedDocument, error)
}

// ParserRegistry dispatches a file to the parser for its format.
type ParserRegistry interface {
	// Register adds a parser for each of its formats.
	Register(p Parser)

	// Parse selects the parser by req.Source.Format and runs it.
	// Returns domain.ErrUnsupportedType when no parser handles the format.
	Parse(ctx context.Context, req ParseRequest) (*domain.ParsedDocument, error)

	// Supports reports whether a parser is registered for the format.
	Supports(format domain.Format) bool
}
