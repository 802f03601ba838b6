package driven

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// AIConfigValidator checks that configured model services are reachable.
// Unconfigured services are valid.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider.
	ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error

	// ValidateRerank sends one probe pair to the reranker.
	ValidateRerank(ctx context.Context, settings *domain.RerankSettings) error
}
