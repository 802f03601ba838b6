package flat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// Ensure snapshot implements the interface.
var _ driven.IndexSnapshot = (*snapshot)(nil)

type entry struct {
	chunk  domain.Chunk
	vector []float32
	norm   float64
}

// snapshot is one immutable generation. Nothing mutates it after
// construction, so it is safe for concurrent readers.
type snapshot struct {
	info     domain.IndexInfo
	embedder driven.EmbeddingService
	timeout  time.Duration

	entries []entry
	docs    []domain.DocumentInfo
	docByID map[string]domain.DocumentInfo
	byDoc   map[string][]domain.Chunk
}

func newSnapshot(gen *driven.IndexGeneration, embedder driven.EmbeddingService, timeout time.Duration) *snapshot {
	s := &snapshot{
		info:     gen.Info,
		embedder: embedder,
		timeout:  timeout,
		entries:  make([]entry, len(gen.Records)),
		docs:     append([]domain.DocumentInfo(nil), gen.Documents...),
		docByID:  make(map[string]domain.DocumentInfo, len(gen.Documents)),
		byDoc:    make(map[string][]domain.Chunk, len(gen.Documents)),
	}

	sort.SliceStable(s.docs, func(a, b int) bool { return s.docs[a].SourcePath < s.docs[b].SourcePath })
	for _, d := range s.docs {
		s.docByID[d.ID] = d
	}

	for n, rec := range gen.Records {
		s.entries[n] = entry{chunk: rec.Chunk, vector: rec.Vector, norm: norm(rec.Vector)}
		s.byDoc[rec.Chunk.DocumentID] = append(s.byDoc[rec.Chunk.DocumentID], rec.Chunk)
	}
	for _, chunks := range s.byDoc {
		sort.Slice(chunks, func(a, b int) bool { return chunks[a].Index < chunks[b].Index })
	}
	return s
}

// Info describes the generation.
func (s *snapshot) Info() domain.IndexInfo {
	return s.info
}

// Search returns the k chunks most similar to text. Ties keep the order of
// source path and chunk index.
func (s *snapshot) Search(ctx context.Context, text string, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(s.entries) == 0 {
		return nil, nil
	}
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: index model %s is not configured", domain.ErrEmbeddingUnavailable, s.info.Model)
	}

	query, err := embedWithTimeout(ctx, s.timeout, func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(query) != s.info.Dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrEmbeddingUnavailable, len(query), s.info.Dimensions)
	}

	qNorm := norm(query)
	hits := make([]driven.VectorHit, 0, len(s.entries))
	for _, e := range s.entries {
		hits = append(hits, driven.VectorHit{Chunk: e.chunk, Similarity: cosine(query, qNorm, e.vector, e.norm)})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		if hits[a].Chunk.SourcePath != hits[b].Chunk.SourcePath {
			return hits[a].Chunk.SourcePath < hits[b].Chunk.SourcePath
		}
		return hits[a].Chunk.Index < hits[b].Chunk.Index
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Documents lists indexed documents ordered by source path.
func (s *snapshot) Documents() []domain.DocumentInfo {
	return append([]domain.DocumentInfo(nil), s.docs...)
}

// Document returns one document by id.
func (s *snapshot) Document(id string) (domain.DocumentInfo, bool) {
	d, ok := s.docByID[id]
	return d, ok
}

// Chunks returns a document's chunks ordered by chunk index.
func (s *snapshot) Chunks(documentID string) []domain.Chunk {
	return append([]domain.Chunk(nil), s.byDoc[documentID]...)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, aNorm float64, b []float32, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 || len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}
