package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// Ensure CorpusRetriever implements the interface.
var _ driving.Retriever = (*CorpusRetriever)(nil)

// Glossary is the read side of the glossary used at query time.
type Glossary interface {
	TermMatcher
	ExpandSynonyms(term string) map[string]struct{}
}

// RetrieverConfig holds recall parameters.
type RetrieverConfig struct {
	// RecallK is the number of vector candidates handed to the reranker.
	RecallK int

	// ExpandSynonyms appends glossary synonyms to the recall query.
	ExpandSynonyms bool
}

// CorpusRetriever answers agent queries from the serving index generation.
type CorpusRetriever struct {
	index    driven.VectorIndex
	reranker *Reranker
	glossary Glossary
	cfg      RetrieverConfig
}

// NewCorpusRetriever creates a retriever. glossary is optional (can be nil).
func NewCorpusRetriever(
	index driven.VectorIndex,
	reranker *Reranker,
	glossary Glossary,
	cfg RetrieverConfig,
) *CorpusRetriever {
	if cfg.RecallK <= 0 {
		cfg.RecallK = domain.DefaultSettings("").Retrieval.RecallK
	}
	return &CorpusRetriever{
		index:    index,
		reranker: reranker,
		glossary: glossary,
		cfg:      cfg,
	}
}

// Retrieve recalls candidates, reranks them and either returns the top
// chunks with citations or the "no evidence" result.
func (r *CorpusRetriever) Retrieve(ctx context.Context, query string) (*domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	q := strings.TrimSpace(query)
	if q == "" {
		return domain.NoEvidence(query, "empty query"), nil
	}

	// One snapshot serves the whole query.
	snap := r.index.Snapshot()
	if snap == nil {
		logger.Warn("retrieve: corpus index not built")
		return domain.NoEvidence(query, "corpus index not built"), nil
	}
	info := snap.Info()

	recall := q
	if r.cfg.ExpandSynonyms {
		recall = r.expandQuery(q)
		if recall != q {
			logger.Debug("Expanded recall query: %q", recall)
		}
	}

	hits, err := snap.Search(ctx, recall, r.cfg.RecallK)
	if err != nil {
		logger.Warn("Vector recall failed: %v", err)
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	logger.Debug("Recalled %d candidates from generation %s", len(hits), info.Generation)

	candidates := make([]domain.RetrievalCandidate, len(hits))
	for i, h := range hits {
		candidates[i] = domain.RetrievalCandidate{
			Chunk:       h.Chunk,
			VectorScore: h.Similarity,
			FinalScore:  h.Similarity,
		}
	}

	outcome := r.reranker.Rerank(ctx, q, candidates)

	var result *domain.RetrievalResult
	if outcome.Rejected {
		reason := r.rejectReason(len(candidates), outcome)
		logger.Info("No evidence: %s", reason)
		result = domain.NoEvidence(query, reason)
	} else {
		result = &domain.RetrievalResult{
			Query: query,
			Found: true,
			Items: make([]domain.RetrievedChunk, 0, len(outcome.Candidates)),
		}
		for _, c := range outcome.Candidates {
			result.Items = append(result.Items, retrievedChunk(c))
		}
		logger.Info("Retrieved %d chunks (best %.3f)", len(result.Items), outcome.BestScore)
	}

	result.Generation = info.Generation
	if info.Degraded {
		result.AddDegradation(domain.DegradedFallbackEmbedding)
	}
	if outcome.Degraded {
		result.AddDegradation(outcome.DegradedReason)
	}
	return result, nil
}

func (r *CorpusRetriever) rejectReason(recalled int, outcome *domain.RerankOutcome) string {
	switch {
	case recalled == 0:
		return "no candidates recalled"
	case outcome.Degraded:
		return "no candidate is similar to the query"
	default:
		return fmt.Sprintf("best score %.3f is below threshold %.3f", outcome.BestScore, r.reranker.cfg.Threshold)
	}
}

// expandQuery appends the synonyms of glossary terms found in q that q does
// not already contain.
func (r *CorpusRetriever) expandQuery(q string) string {
	if r.glossary == nil {
		return q
	}
	matched := r.glossary.MatchTerms(q)
	if len(matched) == 0 {
		return q
	}

	lower := strings.ToLower(q)
	seen := make(map[string]struct{})
	var extra []string
	for canonical := range matched {
		for form := range r.glossary.ExpandSynonyms(canonical) {
			key := strings.ToLower(form)
			if _, ok := seen[key]; ok || strings.Contains(lower, key) {
				continue
			}
			seen[key] = struct{}{}
			extra = append(extra, form)
		}
	}
	if len(extra) == 0 {
		return q
	}
	sort.Strings(extra)
	return q + " " + strings.Join(extra, " ")
}

func retrievedChunk(c domain.RetrievalCandidate) domain.RetrievedChunk {
	heading := c.Chunk.HeadingPath
	if heading == nil {
		heading = []string{}
	}
	return domain.RetrievedChunk{
		Content:       c.Chunk.Content,
		FinalScore:    c.FinalScore,
		VectorScore:   c.VectorScore,
		GlossaryBoost: c.GlossaryBoostApplied,
		HasImages:     c.Chunk.HasImages,
		ImageRefs:     c.Chunk.ImageRefs,
		Citation: domain.Citation{
			DocumentID:  c.Chunk.DocumentID,
			SourcePath:  c.Chunk.SourcePath,
			HeadingPath: heading,
			Heading:     c.Chunk.Heading(),
			ChunkIndex:  c.Chunk.Index,
			ChunkID:     c.Chunk.ID,
		},
	}
}
