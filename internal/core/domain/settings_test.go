package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("/data")

	assert.Equal(t, filepath.Join("/data", "source"), s.Corpus.SourceDir)
	assert.Equal(t, filepath.Join("/data", "glossary"), s.Corpus.GlossaryDir)
	assert.Equal(t, 1200, s.Chunker.MaxChunkSize)
	assert.Equal(t, 100, s.Chunker.Overlap)
	assert.Equal(t, 20, s.Retrieval.RecallK)
	assert.Equal(t, 3, s.Retrieval.TopK)
	assert.InDelta(t, 0.3, s.Rerank.Threshold, 1e-9)
	assert.InDelta(t, 0.2, s.Rerank.Boost, 1e-9)
	assert.False(t, s.Rerank.IsConfigured())
	assert.False(t, s.Embedding.IsConfigured())
	assert.Equal(t, LayoutEngineLocal, s.Layout.Engine)
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		want     bool
	}{
		{"none", EmbeddingSettings{}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"self-hosted openai without key", EmbeddingSettings{Provider: AIProviderOpenAI, BaseURL: "http://gpu:8080/v1"}, true},
		{"genai without key", EmbeddingSettings{Provider: AIProviderGenAI, BaseURL: "http://x"}, false},
		{"genai with key", EmbeddingSettings{Provider: AIProviderGenAI, APIKey: "g"}, true},
		{"unknown", EmbeddingSettings{Provider: "cohere", APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.IsConfigured())
		})
	}
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Ollama (local)", AIProviderOllama.Description())
	assert.Equal(t, unknownDescription, AIProvider("x").Description())
}
