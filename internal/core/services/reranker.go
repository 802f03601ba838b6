package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// minBoostDelta keeps the boost strictly positive for zero and tiny scores.
const minBoostDelta = 1e-6

// TermMatcher finds known domain terms in text.
type TermMatcher interface {
	MatchTerms(text string) map[string]struct{}
}

// RerankerConfig holds the scoring parameters.
type RerankerConfig struct {
	// TopK is the number of candidates kept after sorting.
	TopK int

	// Threshold rejects the result when the best final score is below it.
	Threshold float64

	// Boost is the fractional glossary boost. Zero disables boosting.
	Boost float64
}

// DefaultRerankerConfig mirrors the default settings.
func DefaultRerankerConfig() RerankerConfig {
	d := domain.DefaultSettings("")
	return RerankerConfig{
		TopK:      d.Retrieval.TopK,
		Threshold: d.Rerank.Threshold,
		Boost:     d.Rerank.Boost,
	}
}

// Reranker scores recalled candidates with a cross-encoder, applies the
// glossary boost and the rejection gate.
type Reranker struct {
	service  driven.RerankService
	glossary TermMatcher
	cfg      RerankerConfig
}

// NewReranker creates a reranker. service and glossary may be nil: without a
// service the vector ranking is used, without a glossary nothing is boosted.
func NewReranker(service driven.RerankService, glossary TermMatcher, cfg RerankerConfig) *Reranker {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRerankerConfig().TopK
	}
	return &Reranker{service: service, glossary: glossary, cfg: cfg}
}

// Rerank orders candidates by final score and attaches the rejection decision.
// A failing or missing rerank service degrades to the vector ranking, which
// is neither boosted nor gated by the threshold.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.RetrievalCandidate) *domain.RerankOutcome {
	if len(candidates) == 0 {
		return &domain.RerankOutcome{Rejected: true}
	}
	if r.service == nil {
		logger.Debug("rerank: no service configured, using vector ranking")
		return r.fallback(candidates, domain.DegradedRerankUnavailable)
	}

	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Chunk.Content
	}
	scores, err := r.service.Score(ctx, query, docs)
	if err == nil && len(scores) != len(candidates) {
		err = &domain.RerankServiceError{Err: errScoreCount(len(scores), len(candidates))}
	}
	if err != nil {
		logger.Warn("rerank: %v; falling back to vector ranking", err)
		return r.fallback(candidates, domain.DegradedRerankFailed)
	}

	var queryTerms map[string]struct{}
	if r.glossary != nil && r.cfg.Boost > 0 {
		queryTerms = r.glossary.MatchTerms(query)
	}

	scored := make([]domain.RetrievalCandidate, len(candidates))
	for i, c := range candidates {
		base := scores[i]
		c.RerankScore = &base
		c.FinalScore = base
		if len(queryTerms) > 0 && sharesTerm(queryTerms, r.glossary.MatchTerms(c.Chunk.Content)) {
			c.FinalScore = ApplyBoost(base, r.cfg.Boost)
			c.GlossaryBoostApplied = true
		}
		scored[i] = c
	}
	sortCandidates(scored)
	scored = truncate(scored, r.cfg.TopK)

	best := scored[0].FinalScore
	return &domain.RerankOutcome{
		Candidates: scored,
		BestScore:  best,
		Rejected:   best < r.cfg.Threshold,
	}
}

// fallback keeps the recall order. Candidates with no positive similarity
// are dropped so an unrelated query still abstains.
func (r *Reranker) fallback(candidates []domain.RetrievalCandidate, reason string) *domain.RerankOutcome {
	kept := make([]domain.RetrievalCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.VectorScore <= 0 {
			continue
		}
		c.RerankScore = nil
		c.GlossaryBoostApplied = false
		c.FinalScore = c.VectorScore
		kept = append(kept, c)
	}
	sortCandidates(kept)
	kept = truncate(kept, r.cfg.TopK)

	out := &domain.RerankOutcome{
		Candidates:     kept,
		Degraded:       true,
		DegradedReason: reason,
		Rejected:       len(kept) == 0,
	}
	if len(kept) > 0 {
		out.BestScore = kept[0].FinalScore
	}
	return out
}

// ApplyBoost raises score by the fraction boost of its magnitude, with a
// small floor so the result is always strictly greater than score.
func ApplyBoost(score, boost float64) float64 {
	delta := math.Abs(score) * boost
	if delta < minBoostDelta {
		delta = minBoostDelta
	}
	return score + delta
}

func errScoreCount(got, want int) error {
	return fmt.Errorf("got %d scores for %d documents", got, want)
}

func sharesTerm(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for t := range a {
		if _, ok := b[t]; ok {
			return true
		}
	}
	return false
}

// sortCandidates orders by final score, then vector score, then position in
// the corpus, so equal scores always come out the same way.
func sortCandidates(c []domain.RetrievalCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		a, b := c[i], c[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.VectorScore != b.VectorScore {
			return a.VectorScore > b.VectorScore
		}
		if a.Chunk.SourcePath != b.Chunk.SourcePath {
			return a.Chunk.SourcePath < b.Chunk.SourcePath
		}
		return a.Chunk.Index < b.Chunk.Index
	})
}

func truncate(c []domain.RetrievalCandidate, k int) []domain.RetrievalCandidate {
	if len(c) > k {
		return c[:k]
	}
	return c
}
