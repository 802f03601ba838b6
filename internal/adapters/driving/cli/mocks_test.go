package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
)

type mockBuilder struct {
	report *domain.BuildReport
	err    error
	status driving.BuildStatus
}

func (m *mockBuilder) Build(_ context.Context) (*domain.BuildReport, error) {
	return m.report, m.err
}

func (m *mockBuilder) Start(_ context.Context) error {
	return m.err
}

func (m *mockBuilder) Status() driving.BuildStatus {
	return m.status
}

type mockRetriever struct {
	result    *domain.RetrievalResult
	err       error
	lastQuery string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string) (*domain.RetrievalResult, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return domain.NoEvidence(query, "no candidates"), nil
}

type mockViewer struct {
	files    []domain.DocumentInfo
	page     *domain.ChunkPage
	meta     *domain.DocumentMeta
	err      error
	lastPage domain.PageRequest
}

func (m *mockViewer) ListFiles(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.files, m.err
}

func (m *mockViewer) Chunks(_ context.Context, _ string, page domain.PageRequest) (*domain.ChunkPage, error) {
	m.lastPage = page
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

func (m *mockViewer) Meta(_ context.Context, _ string) (*domain.DocumentMeta, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.meta, nil
}

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

func (m *mockGlossary) Upload(_ context.Context, name string, data []byte) (*domain.GlossaryDelta, error) {
	m.uploadedName = name
	m.uploadedData = data
	if m.err != nil {
		return nil, m.err
	}
	return m.delta, nil
}

func (m *mockGlossary) Delete(_ context.Context, name string) error {
	m.deleted = name
	return m.err
}

func (m *mockGlossary) List() []domain.GlossaryFileInfo { return m.files }

func (m *mockGlossary) Entries() []domain.GlossaryEntry { return m.entries }

func (m *mockGlossary) MatchTerms(_ string) map[string]struct{} { return nil }

func (m *mockGlossary) ExpandSynonyms(term string) map[string]struct{} {
	return map[string]struct{}{term: {}}
}

type mockSettings struct {
	settings domain.Settings
	getErr   error
	setErr   error
	set      map[string]string
}

func (m *mockSettings) Get() (domain.Settings, error) { return m.settings, m.getErr }

func (m *mockSettings) Set(key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.set == nil {
		m.set = map[string]string{}
	}
	m.set[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"embedding.provider", "retrieval.top_k"}
}

type mockValidator struct {
	embedErr  error
	rerankErr error
}

func (m *mockValidator) ValidateEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	return m.embedErr
}

func (m *mockValidator) ValidateRerank(_ context.Context, _ *domain.RerankSettings) error {
	return m.rerankErr
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	builder   *mockBuilder
	retriever *mockRetriever
	viewer    *mockViewer
	glossary  *mockGlossary
	settings  *mockSettings
	validator *mockValidator
}

// setupTestServices installs fresh mocks, resets command flags and
// returns a cleanup that restores the previous globals.
func setupTestServices() (*testServices, func()) {
	oldBuilder, oldRetriever, oldViewer := builder, retriever, viewer
	oldGlossary, oldSettings, oldValidator := glossaryService, settingsService, validator
	oldInterval := progressInterval

	ts := &testServices{
		builder:   &mockBuilder{},
		retriever: &mockRetriever{},
		viewer:    &mockViewer{},
		glossary:  &mockGlossary{},
		settings:  &mockSettings{settings: domain.DefaultSettings("/data")},
		validator: &mockValidator{},
	}
	builder = ts.builder
	retriever = ts.retriever
	viewer = ts.viewer
	glossaryService = ts.glossary
	settingsService = ts.settings
	validator = ts.validator
	progressInterval = 5 * time.Millisecond
	resetFlags()

	return ts, func() {
		builder, retriever, viewer = oldBuilder, oldRetriever, oldViewer
		glossaryService, settingsService, validator = oldGlossary, oldSettings, oldValidator
		progressInterval = oldInterval
		resetFlags()
	}
}

// clearServices sets every service to nil for "not configured" tests.
func clearServices() func() {
	oldBuilder, oldRetriever, oldViewer := builder, retriever, viewer
	oldGlossary, oldSettings, oldValidator := glossaryService, settingsService, validator
	builder, retriever, viewer = nil, nil, nil
	glossaryService, settingsService, validator = nil, nil, nil
	return func() {
		builder, retriever, viewer = oldBuilder, oldRetriever, oldViewer
		glossaryService, settingsService, validator = oldGlossary, oldSettings, oldValidator
	}
}

func resetFlags() {
	buildJSON, statusJSON, retrieveJSON, filesJSON, showJSON = false, false, false, false, false
	showOffset, showLimit, showAnchor = 0, 0, -1
	glossaryEntries = false
}

// execute runs the root command with args and returns its combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
