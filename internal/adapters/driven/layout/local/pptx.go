package local

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type slide struct {
	number int
	name   string
}

// convertPPTX renders each slide as an "## Slide N: <title>" section with
// its text paragraphs and pictures in reading order.
func convertPPTX(pptxPath string) (*driven.LayoutResult, error) {
	reader, err := zip.OpenReader(pptxPath)
	if err != nil {
		return nil, fmt.Errorf("open pptx: %w", err)
	}
	defer reader.Close()

	var slides []slide
	for _, f := range reader.File {
		if m := slidePart.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{number: n, name: f.Name})
		}
	}
	if len(slides) == 0 {
		return nil, errors.New("pptx has no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var (
		blocks  []string
		targets []string
	)
	for _, s := range slides {
		content, err := readPart(&reader.Reader, s.name)
		if err != nil {
			return nil, err
		}
		relsName := path.Join(path.Dir(s.name), "_rels", path.Base(s.name)+".rels")
		rels, err := loadRels(&reader.Reader, relsName, path.Dir(s.name))
		if err != nil {
			return nil, fmt.Errorf("read slide relationships: %w", err)
		}

		title, paragraphs, slideTargets, err := readSlide(content, rels)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", s.name, err)
		}

		heading := fmt.Sprintf("## Slide %d", s.number)
		if title != "" {
			heading += ": " + title
		}
		blocks = append(blocks, heading)
		blocks = append(blocks, paragraphs...)
		for _, target := range slideTargets {
			blocks = append(blocks, "![image]("+target+")")
		}
		targets = append(targets, slideTargets...)
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

// readSlide returns the title placeholder text, the other text paragraphs
// and the media targets of one slide.
func readSlide(content []byte, rels map[string]string) (string, []string, []string, error) {
	var (
		title      string
		paragraphs []string
		targets    []string
		inTitle    bool
	)

	dec := xml.NewDecoder(strings.NewReader(string(content)))
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "sp":
				inTitle = false
			case "ph":
				typ := attr(t, "type")
				inTitle = typ == "title" || typ == "ctrTitle"
			case "p":
				text, err := readDrawingParagraph(dec)
				if err != nil {
					return "", nil, nil, err
				}
				switch {
				case text == "":
				case inTitle && title == "":
					title = strings.Join(strings.Fields(text), " ")
				default:
					paragraphs = append(paragraphs, text)
				}
			case "blip":
				if target, ok := rels[attr(t, "embed")]; ok {
					targets = append(targets, target)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "sp" {
				inTitle = false
			}
		}
	}

	return title, paragraphs, targets, nil
}

// readDrawingParagraph consumes an a:p and returns its a:t text.
func readDrawingParagraph(dec *xml.Decoder) (string, error) {
	var (
		b      strings.Builder
		depth  = 1
		inText bool
	)
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "br":
				b.WriteString("\n")
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
