package httpapi

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
)

// mockBuilder is a mock implementation of driving.CorpusBuilder.
type mockBuilder struct {
	report   *domain.BuildReport
	err      error
	startErr error
	status   driving.BuildStatus
	started  int
}

func (m *mockBuilder) Build(_ context.Context) (*domain.BuildReport, error) {
	return m.report, m.err
}

func (m *mockBuilder) Start(_ context.Context) error {
	m.started++
	return m.startErr
}

func (m *mockBuilder) Status() driving.BuildStatus {
	return m.status
}

// mockRetriever is a mock implementation of driving.Retriever.
type mockRetriever struct {
	result    *domain.RetrievalResult
	err       error
	lastQuery string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string) (*domain.RetrievalResult, error) {
	m.lastQuery = query
	return m.result, m.err
}

// mockViewer is a mock implementation of driving.CorpusViewer.
type mockViewer struct {
	files    []domain.DocumentInfo
	page     *domain.ChunkPage
	meta     *domain.DocumentMeta
	err      error
	lastID   string
	lastPage domain.PageRequest
}

func (m *mockViewer) ListFiles(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.files, m.err
}

func (m *mockViewer) Chunks(_ context.Context, fileID string, page domain.PageRequest) (*domain.ChunkPage, error) {
	m.lastID = fileID
	m.lastPage = page
	return m.page, m.err
}

func (m *mockViewer) Meta(_ context.Context, fileID string) (*domain.DocumentMeta, error) {
	m.lastID = fileID
	return m.meta, m.err
}

// mockGlossary is a mock implementation of driving.GlossaryService.
type mockGlossary struct {
	files        []domain.GlossaryFileInfo
	entries      []domain.GlossaryEntry
	delta        *domain.GlossaryDelta
	err          error
	uploadedName string
	uploadedData []byte
	deleted      string
}

func (m *mockGlossary) Load(_ context.Context) error { return m.err }

func (m *mockGlossary) Upload(_ context.Context, filename string, data []byte) (*domain.GlossaryDelta, error) {
	m.uploadedName = filename
	m.uploadedData = data
	return m.delta, m.err
}

func (m *mockGlossary) Delete(_ context.Context, filename string) error {
	m.deleted = filename
	return m.err
}

func (m *mockGlossary) List() []domain.GlossaryFileInfo { return m.files }

func (m *mockGlossary) Entries() []domain.GlossaryEntry { return m.entries }

func (m *mockGlossary) MatchTerms(_ string) map[string]struct{} { return nil }

func (m *mockGlossary) ExpandSynonyms(term string) map[string]struct{} {
	return map[string]struct{}{term: {}}
}
