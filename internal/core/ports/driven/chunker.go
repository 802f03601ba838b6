package driven

import "github.com/custodia-labs/corpus-rag/internal/core/domain"

// Chunker splits a parsed document into heading-scoped chunks.
type Chunker interface {
	// Chunk returns chunks with chunk indexes starting at 0.
	Chunk(doc *domain.ParsedDocument) []domain.Chunk
}
