package driven

import "context"

// RerankService scores (query, document) pairs with a cross-encoder model.
// This is an optional service - when nil, retrieval keeps the vector ranking.
type RerankService interface {
	// Score returns one relevance score per document, aligned by index.
	// Failures are returned as *domain.RerankServiceError.
	Score(ctx context.Context, query string, documents []string) ([]float64, error)

	// ModelName returns the reranking model name.
	ModelName() string
}
