package local

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/parsers"
)

var headingStyle = regexp.MustCompile(`(?i)^(?:heading|标题)\s*([1-9])$`)

// docxParagraph is one w:p with its style information resolved.
type docxParagraph struct {
	text    string
	level   int
	list    bool
	targets []string
}

// convertDOCX renders word/document.xml as Markdown. Paragraph styles
// Heading1..Heading6 (or an outline level) become ATX headings, numbered
// paragraphs become list items and tables become Markdown tables.
func convertDOCX(path string) (*driven.LayoutResult, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer reader.Close()

	content, err := readPart(&reader.Reader, "word/document.xml")
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, errors.New("docx has no word/document.xml")
	}

	rels, err := loadRels(&reader.Reader, "word/_rels/document.xml.rels", "word")
	if err != nil {
		return nil, fmt.Errorf("read relationships: %w", err)
	}

	var (
		blocks     []string
		targets    []string
		hasHeading bool
	)
	dec := xml.NewDecoder(strings.NewReader(string(content)))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "p":
			para, err := readParagraph(dec, rels)
			if err != nil {
				return nil, err
			}
			targets = append(targets, para.targets...)
			if para.level > 0 {
				hasHeading = true
			}
			if block := para.markdown(); block != "" {
				blocks = append(blocks, block)
			}
		case "tbl":
			rows, tableTargets, err := readTable(dec, rels)
			if err != nil {
				return nil, err
			}
			if table := parsers.MarkdownTable(rows); table != "" {
				blocks = append(blocks, table)
			}
			for _, target := range tableTargets {
				blocks = append(blocks, "![image]("+target+")")
			}
			targets = append(targets, tableTargets...)
		}
	}

	if !hasHeading {
		if title := extractTitle(&reader.Reader); title != "" {
			blocks = append([]string{"# " + title}, blocks...)
		}
	}

	images, err := collectImages(&reader.Reader, targets)
	if err != nil {
		return nil, err
	}

	return &driven.LayoutResult{
		Markdown: strings.Join(blocks, "\n\n"),
		Images:   images,
	}, nil
}

// readParagraph consumes tokens up to the end of the current w:p.
func readParagraph(dec *xml.Decoder, rels map[string]string) (docxParagraph, error) {
	var (
		para   docxParagraph
		b      strings.Builder
		depth  = 1
		inRun  int
		inText bool
	)

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return para, fmt.Errorf("parse paragraph: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "pStyle":
				if m := headingStyle.FindStringSubmatch(attr(t, "val")); m != nil {
					para.level, _ = strconv.Atoi(m[1])
				} else if strings.EqualFold(attr(t, "val"), "Title") {
					para.level = 1
				}
			case "outlineLvl":
				if n, err := strconv.Atoi(attr(t, "val")); err == nil && n < 9 && para.level == 0 {
					para.level = n + 1
				}
			case "numPr":
				para.list = true
			case "r":
				inRun++
			case "t":
				inText = inRun > 0
			case "tab":
				if inRun > 0 {
					b.WriteString("\t")
				}
			case "br", "cr":
				if inRun > 0 {
					b.WriteString("\n")
				}
			case "blip":
				if target, ok := rels[attr(t, "embed")]; ok {
					para.targets = append(para.targets, target)
				}
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "r":
				inRun--
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}

	para.text = strings.TrimSpace(b.String())
	if para.level > 6 {
		para.level = 6
	}
	return para, nil
}

func (p docxParagraph) markdown() string {
	var parts []string
	switch {
	case p.text == "":
	case p.level > 0:
		parts = append(parts, strings.Repeat("#", p.level)+" "+strings.Join(strings.Fields(p.text), " "))
	case p.list:
		parts = append(parts, "- "+p.text)
	default:
		parts = append(parts, p.text)
	}
	for _, target := range p.targets {
		parts = append(parts, "![image]("+target+")")
	}
	return strings.Join(parts, "\n\n")
}

// readTable consumes tokens up to the end of the current w:tbl. Nested
// tables are flattened into the enclosing cell. Images found in cells are
// returned separately since a table cell cannot hold them.
func readTable(dec *xml.Decoder, rels map[string]string) ([][]string, []string, error) {
	var (
		rows    [][]string
		targets []string
	)
	depth := 1

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parse table: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tr":
				rows = append(rows, nil)
				depth++
			case "tc":
				if len(rows) > 0 {
					rows[len(rows)-1] = append(rows[len(rows)-1], "")
				}
				depth++
			case "p":
				para, err := readParagraph(dec, rels)
				if err != nil {
					return nil, nil, err
				}
				targets = append(targets, para.targets...)
				if len(rows) == 0 || len(rows[len(rows)-1]) == 0 || para.text == "" {
					continue
				}
				row := rows[len(rows)-1]
				if cell := row[len(row)-1]; cell != "" {
					row[len(row)-1] = cell + " " + para.text
				} else {
					row[len(row)-1] = para.text
				}
			default:
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}

	return rows, targets, nil
}

// collectImages loads the media parts referenced by the document, once each.
func collectImages(reader *zip.Reader, targets []string) ([]driven.LayoutImage, error) {
	seen := make(map[string]bool, len(targets))
	var images []driven.LayoutImage
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true

		data, err := readPart(reader, target)
		if err != nil {
			return nil, err
		}
		if data == nil {
			continue
		}
		images = append(images, driven.LayoutImage{Name: target, Ext: imageExt(target), Data: data})
	}
	return images, nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the title from docProps/core.xml.
func extractTitle(reader *zip.Reader) string {
	content, err := readPart(reader, "docProps/core.xml")
	if err != nil || content == nil {
		return ""
	}

	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
