package driven

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// VectorIndex owns chunk embeddings and serves nearest-neighbour queries.
//
// Build is destructive: it embeds the whole corpus into a new generation and
// swaps it in atomically. Readers take a Snapshot and run every call of one
// query against it, so a query never mixes two generations.
type VectorIndex interface {
	// Build embeds chunks into a new generation, persists it, then swaps it in.
	// On error the previous generation keeps serving.
	Build(ctx context.Context, docs []domain.DocumentInfo, chunks []domain.Chunk) (*domain.IndexInfo, error)

	// Snapshot returns the live generation, or nil before the first build.
	Snapshot() IndexSnapshot

	// Load restores the last committed generation from persistent storage.
	// Returns domain.ErrIndexNotBuilt when nothing was committed.
	Load(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// IndexSnapshot is one immutable index generation.
type IndexSnapshot interface {
	// Info describes the generation.
	Info() domain.IndexInfo

	// Search embeds text with the build-time model and returns the k most
	// similar chunks, ordered by descending similarity.
	Search(ctx context.Context, text string, k int) ([]VectorHit, error)

	// Documents lists indexed documents ordered by source path.
	Documents() []domain.DocumentInfo

	// Document returns one document by id.
	Document(id string) (domain.DocumentInfo, bool)

	// Chunks returns a document's chunks ordered by chunk index.
	Chunks(documentID string) []domain.Chunk
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk.
	Chunk domain.Chunk

	// Similarity is the cosine similarity score (-1 to 1).
	Similarity float64
}

// IndexRecord is a chunk with its embedding, as persisted by an IndexStore.
type IndexRecord struct {
	Chunk  domain.Chunk
	Vector []float32
}

// IndexGeneration is the persisted form of a snapshot.
type IndexGeneration struct {
	Info      domain.IndexInfo
	Documents []domain.DocumentInfo
	Records   []IndexRecord
}

// IndexStore persists index generations for the VectorIndex.
type IndexStore interface {
	// Save writes a generation and marks it current. A failed Save leaves
	// the previous current generation intact.
	Save(ctx context.Context, gen *IndexGeneration) error

	// Load reads the current generation.
	// Returns domain.ErrIndexNotBuilt when none exists.
	Load(ctx context.Context) (*IndexGeneration, error)

	// Close releases resources.
	Close() error
}
