// Package excel converts workbooks into Markdown, one table per non-empty sheet.
package excel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/logger"
	"github.com/custodia-labs/corpus-rag/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// ErrNoSheets indicates every sheet of the workbook is empty.
var ErrNoSheets = errors.New("workbook has no non-empty sheets")

// Parser handles Excel workbooks.
type Parser struct{}

// New creates a new Excel parser.
func New() *Parser {
	return &Parser{}
}

// Formats returns the formats this parser handles.
func (p *Parser) Formats() []domain.Format {
	return []domain.Format{domain.FormatExcel}
}

// Parse renders each non-empty sheet under an "## <sheet>" heading so chunks
// stay scoped to their sheet. The first non-empty row is the table header.
func (p *Parser) Parse(ctx context.Context, req driven.ParseRequest) (*domain.ParsedDocument, error) {
	src := req.Source
	if strings.EqualFold(filepath.Ext(src.Path), ".xls") {
		return nil, fmt.Errorf("%w: legacy .xls workbook, save as .xlsx", domain.ErrUnsupportedType)
	}

	f, err := excelize.OpenFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	b.WriteString("# " + src.Name() + "\n")

	tables := 0
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		table := parsers.MarkdownTable(rows)
		if table == "" {
			logger.Debug("Skipping empty sheet %q in %s", sheet, src.RelPath)
			continue
		}

		b.WriteString("\n## " + sheet + "\n\n")
		b.WriteString(table)
		b.WriteString("\n")
		tables++
	}

	if tables == 0 {
		return nil, ErrNoSheets
	}

	return &domain.ParsedDocument{
		Source:   src,
		Markdown: b.String(),
	}, nil
}
