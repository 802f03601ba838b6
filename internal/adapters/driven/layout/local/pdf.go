package local

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// CommandRunner executes external commands.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// CheckAvailable reports whether pdftotext can be found on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns platform hints for installing pdftotext.
func InstallInstructions() string {
	return `pdftotext is part of poppler:
  macOS:         brew install poppler
  Debian/Ubuntu: apt install poppler-utils
  Fedora:        dnf install poppler-utils`
}

// convertPDF extracts text with pdftotext. Multi-page documents get one
// "## Page N" section per non-empty page so citations can point at a page.
func (e *Engine) convertPDF(ctx context.Context, path string) (*driven.LayoutResult, error) {
	if _, ok := e.runner.(*execRunner); ok {
		if err := CheckAvailable(); err != nil {
			return nil, err
		}
	}

	out, err := e.runner.Run(ctx, "pdftotext", "-layout", "-enc", "UTF-8", path, "-")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	pages := strings.Split(strings.ReplaceAll(string(out), "\r\n", "\n"), "\f")
	var blocks []string
	nonEmpty := 0
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			nonEmpty++
		}
	}

	for i, page := range pages {
		text := normalisePage(page)
		if text == "" {
			continue
		}
		if nonEmpty > 1 {
			blocks = append(blocks, fmt.Sprintf("## Page %d", i+1))
		}
		blocks = append(blocks, text)
	}

	return &driven.LayoutResult{Markdown: strings.Join(blocks, "\n\n")}, nil
}

// normalisePage trims layout padding and collapses runs of blank lines.
func normalisePage(page string) string {
	var (
		lines []string
		blank bool
	)
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank = len(lines) > 0
			continue
		}
		if blank {
			lines = append(lines, "")
			blank = false
		}
		lines = append(lines, strings.TrimLeft(line, " \t"))
	}
	return strings.Join(lines, "\n")
}
