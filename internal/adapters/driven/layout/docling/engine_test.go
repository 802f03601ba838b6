package docling

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/ratelimit"
)

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "handbook.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o600))
	return path
}

func TestEngine_Convert(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("PNGDATA"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/convert/file", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "md", r.FormValue("to_formats"))
		assert.Equal(t, "embedded", r.FormValue("image_export_mode"))

		f, header, err := r.FormFile("files")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "handbook.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4 fake", string(data))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"document": map[string]any{
				"md_content": "# Handbook\n\n![Figure 1](data:image/png;base64," + png + ")\n\nText",
			},
		})
	}))
	defer server.Close()

	e := New(Config{BaseURL: server.URL + "/"})
	res, err := e.Convert(context.Background(), writeSource(t))
	require.NoError(t, err)

	assert.Equal(t, "# Handbook\n\n![Figure 1](embedded-1.png)\n\nText", res.Markdown)
	require.Len(t, res.Images, 1)
	assert.Equal(t, "embedded-1.png", res.Images[0].Name)
	assert.Equal(t, ".png", res.Images[0].Ext)
	assert.Equal(t, []byte("PNGDATA"), res.Images[0].Data)
}

func TestEngine_Convert_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).Convert(context.Background(), writeSource(t))
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestEngine_Convert_RateLimitedBacksOff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 100, BurstSize: 10})
	_, err := New(Config{BaseURL: server.URL, Limiter: limiter}).Convert(context.Background(), writeSource(t))
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
	assert.False(t, limiter.Allow())
}

func TestEngine_Convert_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "unsupported file", http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).Convert(context.Background(), writeSource(t))
	require.Error(t, err)
	assert.False(t, domain.IsTransient(err))
	assert.Contains(t, err.Error(), "422")
}

func TestEngine_Convert_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(Config{BaseURL: url, Timeout: time.Second}).Convert(context.Background(), writeSource(t))
	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestEngine_Convert_FailedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failure","document":{"md_content":""},"errors":[{"error_message":"encrypted pdf"}]}`))
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).Convert(context.Background(), writeSource(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encrypted pdf")
}

func TestEngine_Convert_MissingFile(t *testing.T) {
	_, err := New(Config{}).Convert(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
}

func TestExtractImages_JPEGAndInvalid(t *testing.T) {
	jpg := base64.StdEncoding.EncodeToString([]byte("JPG"))
	md, images := extractImages("a ![](data:image/jpeg;base64," + jpg + ") b ![x](data:image/png;base64,@@@@) c")

	assert.Equal(t, "a ![](embedded-1.jpg) b ![x](data:image/png;base64,@@@@) c", md)
	require.Len(t, images, 1)
	assert.Equal(t, ".jpg", images[0].Ext)
}

func TestEngine_Name(t *testing.T) {
	assert.Equal(t, "docling", New(Config{}).Name())
}
