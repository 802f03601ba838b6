// Package local is an offline layout engine. It reads the OOXML of .docx and
// .pptx files directly (headings from paragraph styles, embedded media as
// images) and extracts PDF text with pdftotext.
package local

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.LayoutEngine = (*Engine)(nil)

// maxPartSize bounds how much of one zip part is read.
const maxPartSize = 64 << 20

// Engine converts documents without any network service.
type Engine struct {
	runner CommandRunner
}

// New creates a local engine using the system pdftotext.
func New() *Engine {
	return &Engine{runner: &execRunner{}}
}

// NewWithRunner creates a local engine with a custom command runner.
// This is primarily used for testing.
func NewWithRunner(runner CommandRunner) *Engine {
	return &Engine{runner: runner}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "local"
}

// Convert dispatches on the file extension.
func (e *Engine) Convert(ctx context.Context, path string) (*driven.LayoutResult, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".docx":
		return convertDOCX(path)
	case ".pptx":
		return convertPPTX(path)
	case ".pdf":
		return e.convertPDF(ctx, path)
	case ".doc", ".ppt":
		return nil, fmt.Errorf("%w: legacy binary %s needs the docling engine", domain.ErrUnsupportedType, ext)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, ext)
	}
}

// readPart returns the content of a zip entry, or nil if it does not exist.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		content, err := io.ReadAll(io.LimitReader(rc, maxPartSize))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return content, nil
	}
	return nil, nil
}

// imageExt normalises a media file extension.
func imageExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ".bin"
	}
	return ext
}
