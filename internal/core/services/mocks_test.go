package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// mockConfigStore implements driven.ConfigStore for testing.
type mockConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
	setErr error
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{values: make(map[string]any)}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	v, _ := m.Get(key)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(string) []string { return nil }

func (m *mockConfigStore) Set(key string, value any) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error  { return nil }
func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return ":memory:" }

// mockRerankService scores documents by a callback.
type mockRerankService struct {
	mu    sync.Mutex
	score func(query, doc string) float64
	err   error
	calls int
}

func (m *mockRerankService) Score(_ context.Context, query string, docs []string) ([]float64, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(docs))
	for i, d := range docs {
		out[i] = m.score(query, d)
	}
	return out, nil
}

func (m *mockRerankService) ModelName() string { return "mock-reranker" }

// fixedScores returns a scorer looking up scores by document content.
func fixedScores(scores map[string]float64) func(string, string) float64 {
	return func(_, doc string) float64 { return scores[doc] }
}

// mockMatcher matches terms by lower-case substring.
type mockMatcher struct {
	terms []string
}

func (m *mockMatcher) MatchTerms(text string) map[string]struct{} {
	out := map[string]struct{}{}
	lower := strings.ToLower(text)
	for _, t := range m.terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			out[t] = struct{}{}
		}
	}
	return out
}

// mockSnapshot serves fixed hits.
type mockSnapshot struct {
	info      domain.IndexInfo
	hits      []driven.VectorHit
	err       error
	docs      []domain.DocumentInfo
	chunks    map[string][]domain.Chunk
	lastQuery string
	lastK     int
}

func (s *mockSnapshot) Info() domain.IndexInfo { return s.info }

func (s *mockSnapshot) Search(_ context.Context, text string, k int) ([]driven.VectorHit, error) {
	s.lastQuery, s.lastK = text, k
	if s.err != nil {
		return nil, s.err
	}
	if len(s.hits) > k {
		return s.hits[:k], nil
	}
	return s.hits, nil
}

func (s *mockSnapshot) Documents() []domain.DocumentInfo { return s.docs }

func (s *mockSnapshot) Document(id string) (domain.DocumentInfo, bool) {
	for _, d := range s.docs {
		if d.ID == id {
			return d, true
		}
	}
	return domain.DocumentInfo{}, false
}

func (s *mockSnapshot) Chunks(documentID string) []domain.Chunk { return s.chunks[documentID] }

// mockVectorIndex serves a fixed snapshot and records builds.
type mockVectorIndex struct {
	mu       sync.Mutex
	snap     *mockSnapshot
	buildErr error
	builds   int
	block    chan struct{}
	entered  chan struct{}
	docs     []domain.DocumentInfo
	chunks   []domain.Chunk
}

func (m *mockVectorIndex) Build(_ context.Context, docs []domain.DocumentInfo, chunks []domain.Chunk) (*domain.IndexInfo, error) {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.builds++
	if m.buildErr != nil {
		return nil, m.buildErr
	}
	m.docs, m.chunks = docs, chunks
	info := domain.IndexInfo{Generation: fmt.Sprintf("gen-%d", m.builds), Documents: len(docs), Chunks: len(chunks), Degraded: true}
	m.snap = &mockSnapshot{info: info}
	return &info, nil
}

func (m *mockVectorIndex) Snapshot() driven.IndexSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil
	}
	return m.snap
}

func (m *mockVectorIndex) Load(context.Context) error { return domain.ErrIndexNotBuilt }
func (m *mockVectorIndex) Close() error               { return nil }

// mockParser returns canned Markdown per file name, or an error.
type mockParser struct {
	mu       sync.Mutex
	formats  []domain.Format
	markdown map[string]string
	errs     map[string][]error
	calls    map[string]int
}

func newMockParser(formats ...domain.Format) *mockParser {
	return &mockParser{
		formats:  formats,
		markdown: map[string]string{},
		errs:     map[string][]error{},
		calls:    map[string]int{},
	}
}

func (p *mockParser) Formats() []domain.Format { return p.formats }

func (p *mockParser) Parse(_ context.Context, req driven.ParseRequest) (*domain.ParsedDocument, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	name := req.Source.RelPath
	n := p.calls[name]
	p.calls[name]++
	if errs := p.errs[name]; n < len(errs) && errs[n] != nil {
		return nil, errs[n]
	}
	md, ok := p.markdown[name]
	if !ok {
		return nil, errors.New("no fixture for " + name)
	}
	return &domain.ParsedDocument{Source: req.Source, Markdown: md}, nil
}

func (p *mockParser) callCount(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[name]
}
