package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

func TestExtractFileID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid file URI", uri: "corpus://files/a1b2c3", expected: "a1b2c3"},
		{name: "meta URI is not a file URI", uri: "corpus://files/a1b2c3/meta", expected: ""},
		{name: "invalid prefix", uri: "file://files/a1b2c3", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractFileID(tt.uri))
		})
	}
}

func TestExtractMetaFileID(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		expected string
	}{
		{name: "valid meta URI", uri: "corpus://files/a1b2c3/meta", expected: "a1b2c3"},
		{name: "missing meta suffix", uri: "corpus://files/a1b2c3", expected: ""},
		{name: "nested path", uri: "corpus://files/a/b/meta", expected: ""},
		{name: "empty URI", uri: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractMetaFileID(tt.uri))
		})
	}
}

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleFilesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil viewer returns empty list", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)

		result, err := server.handleFilesResource(ctx, makeReadResourceRequest("corpus://files"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "[]", result.Contents[0].Text)
	})

	t.Run("returns files", func(t *testing.T) {
		viewer := &mockViewer{files: []domain.DocumentInfo{
			{ID: "a1", SourcePath: "kpi/coverage.docx", Format: domain.FormatWord, ChunkCount: 12},
		}}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Viewer: viewer})
		require.NoError(t, err)

		result, err := server.handleFilesResource(ctx, makeReadResourceRequest("corpus://files"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, `"id": "a1"`)
		assert.Contains(t, result.Contents[0].Text, "kpi/coverage.docx")
	})

	t.Run("returns error on list failure", func(t *testing.T) {
		viewer := &mockViewer{err: errors.New("index unreadable")}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Viewer: viewer})
		require.NoError(t, err)

		_, err = server.handleFilesResource(ctx, makeReadResourceRequest("corpus://files"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing files")
	})
}

func TestServer_handleFileChunksResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil viewer returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)

		_, err = server.handleFileChunksResource(ctx, makeReadResourceRequest("corpus://files/a1"))

		require.Error(t, err)
	})

	t.Run("returns first page", func(t *testing.T) {
		viewer := &mockViewer{page: &domain.ChunkPage{
			Document: domain.DocumentInfo{ID: "a1"},
			Limit:    domain.DefaultPageLimit,
			Total:    1,
			Chunks:   []domain.Chunk{{Index: 0, Content: "Handover success rate"}},
		}}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Viewer: viewer})
		require.NoError(t, err)

		result, err := server.handleFileChunksResource(ctx, makeReadResourceRequest("corpus://files/a1"))

		require.NoError(t, err)
		assert.Equal(t, "a1", viewer.lastID)
		require.Len(t, result.Contents, 1)
		assert.Contains(t, result.Contents[0].Text, "Handover success rate")
	})

	t.Run("unknown file returns not found", func(t *testing.T) {
		viewer := &mockViewer{err: fmt.Errorf("document zz: %w", domain.ErrNotFound)}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Viewer: viewer})
		require.NoError(t, err)

		_, err = server.handleFileChunksResource(ctx, makeReadResourceRequest("corpus://files/zz"))

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "reading chunks")
	})
}

func TestServer_handleFileMetaResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns headings", func(t *testing.T) {
		viewer := &mockViewer{meta: &domain.DocumentMeta{
			Document: domain.DocumentInfo{ID: "a1"},
			Headings: []domain.HeadingRef{{Path: []string{"KPI"}, Title: "KPI", Level: 1}},
		}}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Viewer: viewer})
		require.NoError(t, err)

		result, err := server.handleFileMetaResource(ctx, makeReadResourceRequest("corpus://files/a1/meta"))

		require.NoError(t, err)
		assert.Equal(t, "a1", viewer.lastID)
		assert.Contains(t, result.Contents[0].Text, `"title": "KPI"`)
	})

	t.Run("invalid URI returns not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Viewer: &mockViewer{}})
		require.NoError(t, err)

		_, err = server.handleFileMetaResource(ctx, makeReadResourceRequest("corpus://files/a1"))

		require.Error(t, err)
	})

	t.Run("returns error on meta failure", func(t *testing.T) {
		viewer := &mockViewer{err: errors.New("snapshot closed")}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Viewer: viewer})
		require.NoError(t, err)

		_, err = server.handleFileMetaResource(ctx, makeReadResourceRequest("corpus://files/a1/meta"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading meta")
	})
}

func TestServer_handleGlossaryResource(t *testing.T) {
	ctx := context.Background()

	t.Run("nil glossary returns empty lists", func(t *testing.T) {
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}})
		require.NoError(t, err)

		result, err := server.handleGlossaryResource(ctx, makeReadResourceRequest("corpus://glossary"))

		require.NoError(t, err)
		assert.JSONEq(t, `{"files":[],"entries":[]}`, result.Contents[0].Text)
	})

	t.Run("returns entries", func(t *testing.T) {
		glossary := &mockGlossary{
			files:   []domain.GlossaryFileInfo{{Name: "terms.csv", Format: domain.GlossaryFormatCSV, TermCount: 1}},
			entries: []domain.GlossaryEntry{{Term: "RSRP", Definition: "Reference Signal Received Power"}},
		}
		server, err := NewServer(&Ports{Retriever: &mockRetriever{}, Glossary: glossary})
		require.NoError(t, err)

		result, err := server.handleGlossaryResource(ctx, makeReadResourceRequest("corpus://glossary"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "Reference Signal Received Power")
		assert.Contains(t, result.Contents[0].Text, "terms.csv")
	})
}
