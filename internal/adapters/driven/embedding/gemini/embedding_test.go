package gemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	s, err := NewEmbeddingService(context.Background(), Config{APIKey: "test-key"})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, s.ModelName())
	assert.Equal(t, DefaultDimensions, s.Dimensions())
	assert.Equal(t, DefaultBatchSize, s.batchSize)
	assert.NoError(t, s.Close())
}

func TestEmbedBatch_Empty(t *testing.T) {
	s, err := NewEmbeddingService(context.Background(), Config{APIKey: "test-key"})
	require.NoError(t, err)

	got, err := s.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestClassify(t *testing.T) {
	assert.True(t, domain.IsTransient(classify(genai.APIError{Code: 429})))
	assert.True(t, domain.IsTransient(classify(genai.APIError{Code: 503})))
	assert.False(t, domain.IsTransient(classify(genai.APIError{Code: 400})))
	assert.False(t, domain.IsTransient(classify(errors.New("boom"))))
}
