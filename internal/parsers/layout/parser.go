// Package layout parses Word, PDF and PowerPoint files through a
// layout-analysis engine, writing extracted images to a side directory with
// stable reference ids and rewriting the Markdown to point at them.
package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// ImagePlaceholder is the marker layout engines emit for an image they did
// not reference by name.
const ImagePlaceholder = "<!-- image -->"

// ErrEmptyDocument indicates the engine produced no text.
var ErrEmptyDocument = errors.New("layout engine returned no content")

// Parser converts documents with a LayoutEngine.
type Parser struct {
	engine driven.LayoutEngine
}

// New creates a layout parser backed by engine.
func New(engine driven.LayoutEngine) *Parser {
	return &Parser{engine: engine}
}

// Formats returns the formats this parser handles.
func (p *Parser) Formats() []domain.Format {
	return []domain.Format{domain.FormatWord, domain.FormatPDF, domain.FormatPPT}
}

// Parse runs the engine and places its images.
func (p *Parser) Parse(ctx context.Context, req driven.ParseRequest) (*domain.ParsedDocument, error) {
	logger.Debug("Layout engine %s: %s", p.engine.Name(), req.Source.RelPath)

	res, err := p.engine.Convert(ctx, req.Source.Path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Markdown) == "" && len(res.Images) == 0 {
		return nil, ErrEmptyDocument
	}

	markdown, images, err := placeImages(res, req)
	if err != nil {
		return nil, err
	}

	return &domain.ParsedDocument{
		Source:   req.Source,
		Markdown: markdown,
		Images:   images,
	}, nil
}

// placeImages writes each image as img-NNN<ext> under req.ImageDir. Named
// images have their links rewritten; unnamed images fill <!-- image -->
// placeholders in order.
func placeImages(res *driven.LayoutResult, req driven.ParseRequest) (string, []domain.ExtractedImage, error) {
	markdown := res.Markdown
	if len(res.Images) == 0 {
		return strings.ReplaceAll(markdown, ImagePlaceholder, ""), nil, nil
	}
	if req.ImageDir == "" {
		return "", nil, fmt.Errorf("%w: no image directory for %s", domain.ErrInvalidInput, req.Source.RelPath)
	}
	if err := os.MkdirAll(req.ImageDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create image dir: %w", err)
	}

	images := make([]domain.ExtractedImage, 0, len(res.Images))
	for i, img := range res.Images {
		ext := img.Ext
		if ext == "" {
			ext = ".png"
		}
		refID := fmt.Sprintf("img-%03d", i+1)
		file := refID + ext
		target := filepath.Join(req.ImageDir, file)
		if err := os.WriteFile(target, img.Data, 0o644); err != nil { //nolint:gosec // G306: images are meant to be viewable
			return "", nil, fmt.Errorf("write image %s: %w", file, err)
		}
		link := path.Join(req.ImageLinkPrefix, file)

		switch {
		case img.Name != "" && strings.Contains(markdown, "]("+img.Name+")"):
			markdown = strings.ReplaceAll(markdown, "]("+img.Name+")", "]("+link+")")
		case strings.Contains(markdown, ImagePlaceholder):
			markdown = strings.Replace(markdown, ImagePlaceholder, "![image]("+link+")", 1)
		default:
			logger.Debug("Image %s of %s has no anchor in the Markdown", refID, req.Source.RelPath)
		}

		images = append(images, domain.ExtractedImage{RefID: refID, FilePath: target, Link: link})
	}

	return strings.ReplaceAll(markdown, ImagePlaceholder, ""), images, nil
}
