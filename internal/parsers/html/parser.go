// Package html converts saved web pages into heading-preserving Markdown.
package html

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// blockSelector lists the elements rendered as Markdown blocks.
const blockSelector = "h1,h2,h3,h4,h5,h6,p,li,pre,table,blockquote"

var whitespace = regexp.MustCompile(`\s+`)

// Parser handles HTML documents.
type Parser struct{}

// New creates a new HTML parser.
func New() *Parser {
	return &Parser{}
}

// Formats returns the formats this parser handles.
func (p *Parser) Formats() []domain.Format {
	return []domain.Format{domain.FormatHTML}
}

// Parse extracts headings, paragraphs, list items, code and tables from the
// main content (<main> or <article> when present, otherwise <body>).
func (p *Parser) Parse(_ context.Context, req driven.ParseRequest) (*domain.ParsedDocument, error) {
	data, err := os.ReadFile(req.Source.Path)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script,style,noscript,svg,nav,footer").Remove()

	root := doc.Find("main, article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var blocks []string
	if title := collapse(doc.Find("title").First().Text()); title != "" && root.Find("h1").Length() == 0 {
		blocks = append(blocks, "# "+title)
	}

	root.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("p,li,pre,table,blockquote").Length() > 0 {
			return
		}
		if block := renderBlock(s); block != "" {
			blocks = append(blocks, block)
		}
	})

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no readable content", domain.ErrInvalidInput)
	}

	return &domain.ParsedDocument{
		Source:   req.Source,
		Markdown: strings.Join(blocks, "\n\n") + "\n",
	}, nil
}

func renderBlock(s *goquery.Selection) string {
	tag := goquery.NodeName(s)
	switch tag {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		text := collapse(s.Text())
		if text == "" {
			return ""
		}
		return strings.Repeat("#", int(tag[1]-'0')) + " " + text
	case "li":
		if text := collapse(s.Text()); text != "" {
			return "- " + text
		}
		return ""
	case "pre":
		code := strings.Trim(s.Text(), "\n")
		if strings.TrimSpace(code) == "" {
			return ""
		}
		return "```\n" + code + "\n```"
	case "blockquote":
		if text := collapse(s.Text()); text != "" {
			return "> " + text
		}
		return ""
	case "table":
		return renderTable(s)
	default:
		return collapse(s.Text())
	}
}

func renderTable(table *goquery.Selection) string {
	var rows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, collapse(cell.Text()))
		})
		rows = append(rows, cells)
	})
	return parsers.MarkdownTable(rows)
}

func collapse(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
