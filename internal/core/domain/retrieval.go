package domain

// NoEvidenceMessage is the refusal the agent surfaces when retrieval abstains.
const NoEvidenceMessage = "No evidence found in the corpus for this question."

// Degradation reasons carried on results.
const (
	DegradedFallbackEmbedding = "fallback embedding: no embedding backend configured"
	DegradedRerankUnavailable = "reranker not configured: vector ranking used"
	DegradedRerankFailed      = "reranker failed: vector ranking used"
)

// RetrievalCandidate exists only within a single query's execution.
type RetrievalCandidate struct {
	// Chunk is the recalled chunk.
	Chunk Chunk

	// VectorScore is the cosine similarity from recall.
	VectorScore float64

	// RerankScore is nil until reranking completes.
	RerankScore *float64

	// GlossaryBoostApplied is true when query and chunk share a known term.
	GlossaryBoostApplied bool

	// FinalScore is the score the candidate is ordered by.
	FinalScore float64
}

// RerankOutcome is the scored, sorted and truncated candidate list with the
// rejection decision attached.
type RerankOutcome struct {
	// Candidates are sorted by FinalScore descending.
	Candidates []RetrievalCandidate

	// Rejected is true when the best score is below the threshold.
	Rejected bool

	// BestScore is the top final score, 0 when there are no candidates.
	BestScore float64

	// Degraded is true when the vector ranking was used instead of the reranker.
	Degraded bool

	// DegradedReason explains the degradation.
	DegradedReason string
}

// Citation carries what a caller needs to link back into the corpus viewer.
type Citation struct {
	DocumentID  string   `json:"document_id"`
	SourcePath  string   `json:"source_path"`
	HeadingPath []string `json:"heading_path"`
	Heading     string   `json:"heading"`
	ChunkIndex  int      `json:"chunk_index"`
	ChunkID     string   `json:"chunk_id"`
}

// RetrievedChunk is one accepted result.
type RetrievedChunk struct {
	Content       string   `json:"content"`
	FinalScore    float64  `json:"final_score"`
	VectorScore   float64  `json:"vector_score"`
	GlossaryBoost bool     `json:"glossary_boost"`
	HasImages     bool     `json:"has_images"`
	ImageRefs     []string `json:"image_refs,omitempty"`
	Citation      Citation `json:"citation"`
}

// RetrievalResult is either a list of cited chunks or the "no evidence" sentinel.
type RetrievalResult struct {
	// Query is the query as received.
	Query string `json:"query"`

	// Found is false for the "no evidence" sentinel. Items is then empty.
	Found bool `json:"found"`

	// Items are ordered by FinalScore descending.
	Items []RetrievedChunk `json:"items"`

	// Reason explains a "no evidence" outcome.
	Reason string `json:"reason,omitempty"`

	// Generation is the index generation that served the query.
	Generation string `json:"generation,omitempty"`

	// Degraded is true when any fallback path was taken.
	Degraded bool `json:"degraded"`

	// DegradedReasons lists the fallbacks taken.
	DegradedReasons []string `json:"degraded_reasons,omitempty"`
}

// NoEvidence builds the sentinel result.
func NoEvidence(query, reason string) *RetrievalResult {
	return &RetrievalResult{
		Query:  query,
		Found:  false,
		Items:  []RetrievedChunk{},
		Reason: reason,
	}
}

// IsNoEvidence reports whether r is the sentinel.
func (r *RetrievalResult) IsNoEvidence() bool {
	return r == nil || !r.Found
}

// AddDegradation records a fallback on the result.
func (r *RetrievalResult) AddDegradation(reason string) {
	if reason == "" {
		return
	}
	r.Degraded = true
	for _, existing := range r.DegradedReasons {
		if existing == reason {
			return
		}
	}
	r.DegradedReasons = append(r.DegradedReasons, reason)
}
