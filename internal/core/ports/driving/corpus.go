package driving

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// CorpusViewer is the read-only browsing API over the serving index generation.
type CorpusViewer interface {
	// ListFiles returns indexed documents ordered by source path.
	ListFiles(ctx context.Context) ([]domain.DocumentInfo, error)

	// Chunks returns one page of a document's chunks.
	Chunks(ctx context.Context, fileID string, page domain.PageRequest) (*domain.ChunkPage, error)

	// Meta returns the heading tree of a document.
	Meta(ctx context.Context, fileID string) (*domain.DocumentMeta, error)
}
