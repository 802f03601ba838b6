// Package docling provides a layout engine backed by a docling-serve
// instance. Word, PDF and PowerPoint files (including legacy .doc/.ppt)
// are uploaded and come back as Markdown with embedded images.
package docling

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/ratelimit"
)

// Ensure Engine implements the interface.
var _ driven.LayoutEngine = (*Engine)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:5001"
	DefaultTimeout = 300 * time.Second
)

// dataURIImage matches Markdown images whose target is a base64 data URI.
var dataURIImage = regexp.MustCompile(`!\[([^\]]*)\]\(data:image/([a-zA-Z0-9.+-]+);base64,([A-Za-z0-9+/=\s]+)\)`)

// Config holds configuration for the docling engine.
type Config struct {
	// BaseURL is the docling-serve address (default: http://localhost:5001).
	BaseURL string

	// Timeout bounds one conversion (default: 300s).
	Timeout time.Duration

	// Limiter throttles requests. Nil means unthrottled.
	Limiter *ratelimit.Limiter
}

// Engine converts documents through docling-serve.
type Engine struct {
	client  *http.Client
	baseURL string
	limiter *ratelimit.Limiter
}

// convertResponse is the docling-serve response format.
type convertResponse struct {
	Document struct {
		MDContent string `json:"md_content"`
	} `json:"document"`
	Status string `json:"status"`
	Errors []struct {
		Message string `json:"error_message"`
	} `json:"errors"`
}

// New creates a docling engine.
func New(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Engine{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		limiter: cfg.Limiter,
	}
}

// Name identifies the engine in logs.
func (e *Engine) Name() string {
	return "docling"
}

// Convert uploads the file and returns the Markdown with embedded images
// split out into LayoutImages.
func (e *Engine) Convert(ctx context.Context, path string) (*driven.LayoutResult, error) {
	body, contentType, err := buildRequest(path)
	if err != nil {
		return nil, err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/convert/file", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: docling: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: docling: read response: %v", domain.ErrTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		e.limiter.Backoff(ratelimit.ParseRetryAfter(resp.Header.Get("Retry-After")))
		return nil, fmt.Errorf("%w: docling: rate limited", domain.ErrTransient)
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: docling error (status %d): %s", domain.ErrTransient, resp.StatusCode, snippet(respBody))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("docling error (status %d): %s", resp.StatusCode, snippet(respBody))
	}

	var convResp convertResponse
	if err := json.Unmarshal(respBody, &convResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if convResp.Status != "" && convResp.Status != "success" && convResp.Document.MDContent == "" {
		msg := convResp.Status
		if len(convResp.Errors) > 0 {
			msg = convResp.Errors[0].Message
		}
		return nil, fmt.Errorf("docling conversion failed: %s", msg)
	}

	markdown, images := extractImages(convResp.Document.MDContent)
	return &driven.LayoutResult{Markdown: markdown, Images: images}, nil
}

func buildRequest(path string) (io.Reader, string, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from corpus discovery
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"to_formats":        "md",
		"image_export_mode": "embedded",
		"do_ocr":            "false",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// extractImages replaces data-URI images with short names and returns the
// decoded bytes. Undecodable images are dropped from the Markdown.
func extractImages(md string) (string, []driven.LayoutImage) {
	var images []driven.LayoutImage
	out := dataURIImage.ReplaceAllStringFunc(md, func(match string) string {
		m := dataURIImage.FindStringSubmatch(match)
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(m[3]), ""))
		if err != nil {
			return ""
		}
		ext := "." + strings.ToLower(m[2])
		if ext == ".jpeg" || ext == ".pjpeg" {
			ext = ".jpg"
		}
		if ext == ".svg+xml" {
			ext = ".svg"
		}
		name := fmt.Sprintf("embedded-%d%s", len(images)+1, ext)
		images = append(images, driven.LayoutImage{Name: name, Ext: ext, Data: data})
		return "![" + m[1] + "](" + name + ")"
	})
	return out, images
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// ErrNotReachable is returned by Ping when docling-serve does not answer.
var ErrNotReachable = errors.New("docling-serve not reachable")

// Ping checks the /health endpoint.
func (e *Engine) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReachable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrNotReachable, resp.StatusCode)
	}
	return nil
}
