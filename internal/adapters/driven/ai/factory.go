// Package ai provides factory functions that build the model-backed adapters
// (embedding, rerank, layout analysis) selected by settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/layout/docling"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/layout/local"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driven/rerank/remote"
	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/ratelimit"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Limiters holds one rate limiter per remote service.
type Limiters struct {
	Embedding *ratelimit.Limiter
	Rerank    *ratelimit.Limiter
	Layout    *ratelimit.Limiter
}

// NewLimiters creates independent limiters with the default budget.
func NewLimiters() Limiters {
	return Limiters{
		Embedding: ratelimit.New(ratelimit.DefaultConfig),
		Rerank:    ratelimit.New(ratelimit.DefaultConfig),
		Layout:    ratelimit.New(ratelimit.Config{RequestsPerSecond: 2, BurstSize: 4}),
	}
}

// CreateEmbeddingService creates the embedding service selected by settings.
// Returns nil when no provider is configured; callers then fall back to the
// hash embedding.
func CreateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
	limiter *ratelimit.Limiter,
) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings, limiter), nil

	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings, limiter)

	case domain.AIProviderGenAI:
		return createGeminiEmbedding(ctx, settings, limiter)

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateAndValidateEmbeddingService creates an embedding service and checks
// that it answers. Failures wrap domain.ErrEmbeddingUnavailable.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
	limiter *ratelimit.Limiter,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings, limiter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'corpus config' to check embedding.*",
			domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close() //nolint:errcheck
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}

	return svc, nil
}

// CreateRerankService creates the remote reranker. Returns nil when
// rerank.base_url is unset; retrieval then keeps the vector ranking.
func CreateRerankService(settings *domain.RerankSettings, limiter *ratelimit.Limiter) (driven.RerankService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	svc, err := remote.New(remote.Config{
		BaseURL: settings.BaseURL,
		APIKey:  settings.APIKey,
		Model:   settings.Model,
		Timeout: settings.Timeout,
		Limiter: limiter,
	})
	if err != nil {
		return nil, fmt.Errorf("creating reranker: %w", err)
	}
	return svc, nil
}

// CreateLayoutEngine creates the layout engine for Word, PDF and PPT files.
func CreateLayoutEngine(settings *domain.LayoutSettings, limiter *ratelimit.Limiter) (driven.LayoutEngine, error) {
	if settings == nil {
		return local.New(), nil
	}

	switch settings.Engine {
	case domain.LayoutEngineLocal, "":
		return local.New(), nil

	case domain.LayoutEngineDocling:
		return docling.New(docling.Config{
			BaseURL: settings.BaseURL,
			Timeout: settings.Timeout,
			Limiter: limiter,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported layout engine: %s", settings.Engine)
	}
}

// dimensionsFor resolves the vector size: explicit setting, then the known
// model table, then the adapter default.
func dimensionsFor(settings *domain.EmbeddingSettings, fallback int) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	if d := domain.EmbeddingDimensions()[settings.Model]; d > 0 {
		return d
	}
	return fallback
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) driven.EmbeddingService {
	return ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: dimensionsFor(settings, ollama.DefaultDimensions),
		Limiter:    limiter,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings, limiter *ratelimit.Limiter) (driven.EmbeddingService, error) {
	return openai.NewEmbeddingService(openai.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Timeout:    settings.Timeout,
		Dimensions: settings.Dimensions,
		BatchSize:  settings.BatchSize,
		Limiter:    limiter,
	})
}

// Gemini vectors are truncated to the configured size, so the model table
// does not apply.
func createGeminiEmbedding(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
	limiter *ratelimit.Limiter,
) (driven.EmbeddingService, error) {
	return gemini.NewEmbeddingService(ctx, gemini.Config{
		APIKey:     settings.APIKey,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
		BatchSize:  settings.BatchSize,
		Limiter:    limiter,
	})
}
