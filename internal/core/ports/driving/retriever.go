package driving

import (
	"context"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

// Retriever is the query-time entry point exposed to the agent as a tool.
type Retriever interface {
	// Retrieve returns cited chunks, or the "no evidence" result when the
	// rejection gate triggers. Reranker failures degrade the result rather
	// than failing the call.
	Retrieve(ctx context.Context, query string) (*domain.RetrievalResult, error)
}
