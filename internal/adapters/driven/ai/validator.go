package ai

import (
	"context"
	"fmt"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks that configured model services answer.
type ConfigValidator struct{}

// NewConfigValidator creates a new AI config validator.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{}
}

// ValidateEmbedding pings the configured embedding provider.
// An unconfigured provider is valid: the hash fallback needs nothing.
func (v *ConfigValidator) ValidateEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(ctx, settings, nil)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close() //nolint:errcheck

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(pingCtx)
}

// ValidateRerank scores one probe pair against the configured reranker.
func (v *ConfigValidator) ValidateRerank(ctx context.Context, settings *domain.RerankSettings) error {
	svc, err := CreateRerankService(settings, nil)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	scores, err := svc.Score(pingCtx, "ping", []string{"ping"})
	if err != nil {
		return err
	}
	if len(scores) != 1 {
		return fmt.Errorf("reranker returned %d scores for 1 document", len(scores))
	}
	return nil
}
