package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short key", "abc123", "****"},
		{"exactly 8 chars", "12345678", "****"},
		{"long key", "sk-1234567890abcdef", "sk-1...cdef"},
		{"empty key", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskAPIKey(tt.input))
		})
	}
}

func TestConfigShow_Defaults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config")

	require.NoError(t, err)
	assert.Contains(t, out, "Source:   /data/source")
	assert.Contains(t, out, "Hash fallback")
	assert.Contains(t, out, "Glossary boost: 20%")
	assert.Contains(t, out, "Port: 8008")
	assert.Contains(t, out, "Retrieval runs degraded")
}

func TestConfigShow_MasksKeys(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-1234567890abcdef",
	}
	ts.settings.settings.Rerank.BaseURL = "http://rerank:8080"

	out, err := execute("config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "API Key: sk-1...cdef")
	assert.NotContains(t, out, "sk-1234567890abcdef")
	assert.NotContains(t, out, "Retrieval runs degraded")
}

func TestConfigShow_InvalidStoredValue(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.getErr = errors.Join(domain.ErrInvalidInput, errors.New("retrieval needs 0 < top_k <= recall_k"))

	out, err := execute("config")

	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
}

func TestConfigSet(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config", "set", "retrieval.top_k", "5")
	require.NoError(t, err)
	assert.Equal(t, "5", ts.settings.set["retrieval.top_k"])
	assert.Contains(t, out, "Set retrieval.top_k = 5")

	out, err = execute("config", "set", "rerank.api_key", "rk-abcdefghijkl")
	require.NoError(t, err)
	assert.Contains(t, out, "rk-a...ijkl")
}

func TestConfigSet_Invalid(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.setErr = domain.ErrInvalidInput

	_, err := execute("config", "set", "nope", "1")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigKeys(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config", "keys")

	require.NoError(t, err)
	assert.Contains(t, out, "embedding.provider\nretrieval.top_k\n")
}

func TestConfigCheck(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Embedding: not configured")
	assert.Contains(t, out, "Rerank:    not configured")

	ts.settings.settings.Embedding.Provider = domain.AIProviderOllama
	ts.settings.settings.Rerank.BaseURL = "http://rerank:8080"
	ts.validator.rerankErr = domain.ErrRerankService

	out, err = execute("config", "check")
	require.Error(t, err)
	assert.Contains(t, out, "Embedding: ok")
	assert.Contains(t, out, "Rerank:    FAILED")
}

func TestConfig_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer clearServices()()

	for _, args := range [][]string{{"config"}, {"config", "set", "a", "b"}, {"config", "keys"}, {"config", "check"}} {
		_, err := execute(args...)
		require.Error(t, err, args)
		assert.Contains(t, err.Error(), "settings service not configured")
	}
}
