// Package markdown ingests Markdown files placed directly in the source directory.
package markdown

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser passes Markdown through with line endings normalised.
type Parser struct{}

// New creates a new Markdown parser.
func New() *Parser {
	return &Parser{}
}

// Formats returns the formats this parser handles.
func (p *Parser) Formats() []domain.Format {
	return []domain.Format{domain.FormatMarkdown}
}

// Parse reads the file. Image links are kept as written.
func (p *Parser) Parse(_ context.Context, req driven.ParseRequest) (*domain.ParsedDocument, error) {
	data, err := os.ReadFile(req.Source.Path)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: markdown is not valid UTF-8", domain.ErrInvalidInput)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	return &domain.ParsedDocument{
		Source:   req.Source,
		Markdown: text,
	}, nil
}
