package mcp

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	result *domain.RetrievalResult
	err    error
}

func (m *mockRetriever) Retrieve(_ context.Context, query string) (*domain.RetrievalResult, error) {
	if m.result == nil && m.err == nil {
		return domain.NoEvidence(query, "no candidates"), nil
	}
	return m.result, m.err
}

// mockViewer is a mock implementation of driving.CorpusViewer.
type mockViewer struct {
	files  []domain.DocumentInfo
	page   *domain.ChunkPage
	meta   *domain.DocumentMeta
	err    error
	lastID string
}

func (m *mockViewer) ListFiles(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.files, m.err
}

func (m *mockViewer) Chunks(_ context.Context, fileID string, _ domain.PageRequest) (*domain.ChunkPage, error) {
	m.lastID = fileID
	return m.page, m.err
}

func (m *mockViewer) Meta(_ context.Context, fileID string) (*domain.DocumentMeta, error) {
	m.lastID = fileID
	return m.meta, m.err
}

// mockGlossary is a mock implementation of driving.GlossaryService.
type mockGlossary struct {
	files   []domain.GlossaryFileInfo
	entries []domain.GlossaryEntry
}

func (m *mockGlossary) Load(_ context.Context) error { return nil }

func (m *mockGlossary) Upload(_ context.Context, _ string, _ []byte) (*domain.GlossaryDelta, error) {
	return &domain.GlossaryDelta{}, nil
}

func (m *mockGlossary) Delete(_ context.Context, _ string) error { return nil }

func (m *mockGlossary) List() []domain.GlossaryFileInfo { return m.files }

func (m *mockGlossary) Entries() []domain.GlossaryEntry { return m.entries }

func (m *mockGlossary) MatchTerms(_ string) map[string]struct{} { return nil }

func (m *mockGlossary) ExpandSynonyms(term string) map[string]struct{} {
	return map[string]struct{}{term: {}}
}
