package domain

import (
	"path/filepath"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an embedding backend.
type AIProvider string

// Available embedding providers. The empty provider selects the
// deterministic hash fallback.
const (
	// AIProviderNone uses the hash-based fallback embedding.
	AIProviderNone AIProvider = ""

	// AIProviderOllama is a local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is the OpenAI API or any compatible endpoint.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderGenAI is the Google Gemini API.
	AIProviderGenAI AIProvider = "genai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderNone, AIProviderOllama, AIProviderOpenAI, AIProviderGenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderNone:
		return "Hash fallback (offline, degraded)"
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI-compatible (cloud)"
	case AIProviderGenAI:
		return "Gemini (cloud)"
	default:
		return unknownDescription
	}
}

// LayoutEngineKind selects the layout-analysis engine for Word/PDF/PPT.
type LayoutEngineKind string

// Layout engines.
const (
	// LayoutEngineLocal extracts text offline (docx/pptx XML, pdftotext).
	LayoutEngineLocal LayoutEngineKind = "local"

	// LayoutEngineDocling calls a docling-serve compatible conversion service.
	LayoutEngineDocling LayoutEngineKind = "docling"
)

// IsValid returns true if the engine is recognised.
func (k LayoutEngineKind) IsValid() bool {
	return k == LayoutEngineLocal || k == LayoutEngineDocling
}

// CorpusSettings holds the persisted state layout.
type CorpusSettings struct {
	// SourceDir holds the files to ingest.
	SourceDir string

	// OutputDir receives parsed Markdown and images.
	OutputDir string

	// IndexDir receives the persisted vector index.
	IndexDir string

	// GlossaryDir holds glossary files.
	GlossaryDir string
}

// ChunkerSettings holds chunking limits, in characters.
type ChunkerSettings struct {
	MaxChunkSize int
	Overlap      int
}

// RetrievalSettings holds recall and result sizes.
type RetrievalSettings struct {
	// RecallK is the number of vector candidates handed to the reranker.
	RecallK int

	// TopK is the number of chunks returned.
	TopK int

	// ExpandSynonyms adds glossary synonyms to the recall query.
	ExpandSynonyms bool
}

// RerankSettings configures the remote cross-encoder.
type RerankSettings struct {
	// BaseURL is the rerank API root. Empty disables reranking (degraded).
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is the reranking model name.
	Model string

	// Threshold is the rejection gate on the best final score.
	Threshold float64

	// Boost is the fractional glossary boost (0.2 means +20%).
	Boost float64

	// Timeout bounds each rerank call.
	Timeout time.Duration
}

// IsConfigured returns true if a remote reranker is set.
func (r RerankSettings) IsConfigured() bool {
	return r.BaseURL != ""
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (OpenAI, Gemini).
	APIKey string

	// Dimensions overrides the model's vector size when non-zero.
	Dimensions int

	// BatchSize is the number of chunks per embedding request.
	BatchSize int

	// Timeout bounds each embedding call.
	Timeout time.Duration
}

// IsConfigured returns true if a real embedding backend is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if e.Provider == AIProviderNone || !e.Provider.IsValid() {
		return false
	}
	if e.APIKey != "" || !e.Provider.RequiresAPIKey() {
		return true
	}
	// Self-hosted OpenAI-compatible servers usually run without a key.
	return e.Provider == AIProviderOpenAI && e.BaseURL != ""
}

// LayoutSettings configures the layout-analysis engine.
type LayoutSettings struct {
	Engine  LayoutEngineKind
	BaseURL string
	Timeout time.Duration
}

// ParserSettings configures per-file parsing.
type ParserSettings struct {
	// Workers is the number of files parsed concurrently.
	Workers int

	// Retries is the number of extra attempts for transient failures.
	Retries int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Port int
}

// Settings holds all application settings.
type Settings struct {
	Corpus    CorpusSettings
	Chunker   ChunkerSettings
	Retrieval RetrievalSettings
	Rerank    RerankSettings
	Embedding EmbeddingSettings
	Layout    LayoutSettings
	Parser    ParserSettings
	Server    ServerSettings
}

// DefaultSettings returns settings rooted at dataDir.
// Reranking and embeddings are left unconfigured, so a fresh install runs
// fully offline in degraded mode.
func DefaultSettings(dataDir string) Settings {
	return Settings{
		Corpus: CorpusSettings{
			SourceDir:   filepath.Join(dataDir, "source"),
			OutputDir:   filepath.Join(dataDir, "markdown"),
			IndexDir:    filepath.Join(dataDir, "index"),
			GlossaryDir: filepath.Join(dataDir, "glossary"),
		},
		Chunker: ChunkerSettings{
			MaxChunkSize: 1200,
			Overlap:      100,
		},
		Retrieval: RetrievalSettings{
			RecallK:        20,
			TopK:           3,
			ExpandSynonyms: true,
		},
		Rerank: RerankSettings{
			Model:     "bge-reranker-v2-m3",
			Threshold: 0.3,
			Boost:     0.2,
			Timeout:   15 * time.Second,
		},
		Embedding: EmbeddingSettings{
			BatchSize: 32,
			Timeout:   60 * time.Second,
		},
		Layout: LayoutSettings{
			Engine:  LayoutEngineLocal,
			BaseURL: "http://localhost:5001",
			Timeout: 300 * time.Second,
		},
		Parser: ParserSettings{
			Workers: 4,
			Retries: 2,
		},
		Server: ServerSettings{
			Port: 8008,
		},
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderGenAI:  "gemini-embedding-001",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		"bge-m3":            1024,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Gemini models
		"gemini-embedding-001": 3072,
		"text-embedding-004":   768,
	}
}
