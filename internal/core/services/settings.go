package services

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keySourceDir      = "corpus.source_dir"
	keyOutputDir      = "corpus.output_dir"
	keyIndexDir       = "corpus.index_dir"
	keyGlossaryDir    = "corpus.glossary_dir"
	keyMaxChunkSize   = "chunker.max_chunk_size"
	keyOverlap        = "chunker.overlap"
	keyRecallK        = "retrieval.recall_k"
	keyTopK           = "retrieval.top_k"
	keyExpandSynonyms = "retrieval.expand_synonyms"
	keyRerankBaseURL  = "rerank.base_url"
	keyRerankAPIKey   = "rerank.api_key"
	keyRerankModel    = "rerank.model"
	keyRerankThresh   = "rerank.threshold"
	keyRerankBoost    = "rerank.boost"
	keyRerankTimeout  = "rerank.timeout_seconds"
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedDims      = "embedding.dimensions"
	keyEmbedBatch     = "embedding.batch_size"
	keyEmbedTimeout   = "embedding.timeout_seconds"
	keyLayoutEngine   = "layout.engine"
	keyLayoutBaseURL  = "layout.base_url"
	keyLayoutTimeout  = "layout.timeout_seconds"
	keyParserWorkers  = "parser.workers"
	keyParserRetries  = "parser.retries"
	keyServerPort     = "server.port"
)

// Environment variables that override secrets from the config file.
//
//nolint:gosec // G101: env var names, not credentials.
const (
	EnvEmbeddingAPIKey = "CORPUS_EMBEDDING_API_KEY"
	EnvRerankAPIKey    = "CORPUS_RERANK_API_KEY"
	EnvGeminiAPIKey    = "GEMINI_API_KEY"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindBool
)

var settingKeys = map[string]keyKind{
	keySourceDir: kindString, keyOutputDir: kindString, keyIndexDir: kindString, keyGlossaryDir: kindString,
	keyMaxChunkSize: kindInt, keyOverlap: kindInt,
	keyRecallK: kindInt, keyTopK: kindInt, keyExpandSynonyms: kindBool,
	keyRerankBaseURL: kindString, keyRerankAPIKey: kindString, keyRerankModel: kindString,
	keyRerankThresh: kindFloat, keyRerankBoost: kindFloat, keyRerankTimeout: kindInt,
	keyEmbedProvider: kindString, keyEmbedModel: kindString, keyEmbedBaseURL: kindString,
	keyEmbedAPIKey: kindString, keyEmbedDims: kindInt, keyEmbedBatch: kindInt, keyEmbedTimeout: kindInt,
	keyLayoutEngine: kindString, keyLayoutBaseURL: kindString, keyLayoutTimeout: kindInt,
	keyParserWorkers: kindInt, keyParserRetries: kindInt,
	keyServerPort: kindInt,
}

// SettingsService resolves typed settings from the config store.
type SettingsService struct {
	configStore driven.ConfigStore
	dataDir     string
	getenv      func(string) string
}

// NewSettingsService creates a settings service. dataDir roots the default
// corpus directories.
func NewSettingsService(configStore driven.ConfigStore, dataDir string) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		dataDir:     dataDir,
		getenv:      os.Getenv,
	}
}

// LoadSettings is a shorthand for NewSettingsService(store, dataDir).Get().
func LoadSettings(configStore driven.ConfigStore, dataDir string) (domain.Settings, error) {
	return NewSettingsService(configStore, dataDir).Get()
}

// Get resolves the current settings. Missing keys take their defaults,
// env variables override API keys. Returns domain.ErrInvalidInput when a
// stored value is out of range.
func (s *SettingsService) Get() (domain.Settings, error) {
	d := domain.DefaultSettings(s.dataDir)

	provider := domain.AIProvider(s.getString(keyEmbedProvider, string(d.Embedding.Provider)))
	engine := domain.LayoutEngineKind(s.getString(keyLayoutEngine, string(d.Layout.Engine)))

	settings := domain.Settings{
		Corpus: domain.CorpusSettings{
			SourceDir:   s.getString(keySourceDir, d.Corpus.SourceDir),
			OutputDir:   s.getString(keyOutputDir, d.Corpus.OutputDir),
			IndexDir:    s.getString(keyIndexDir, d.Corpus.IndexDir),
			GlossaryDir: s.getString(keyGlossaryDir, d.Corpus.GlossaryDir),
		},
		Chunker: domain.ChunkerSettings{
			MaxChunkSize: s.getInt(keyMaxChunkSize, d.Chunker.MaxChunkSize),
			Overlap:      s.getInt(keyOverlap, d.Chunker.Overlap),
		},
		Retrieval: domain.RetrievalSettings{
			RecallK:        s.getInt(keyRecallK, d.Retrieval.RecallK),
			TopK:           s.getInt(keyTopK, d.Retrieval.TopK),
			ExpandSynonyms: s.getBool(keyExpandSynonyms, d.Retrieval.ExpandSynonyms),
		},
		Rerank: domain.RerankSettings{
			BaseURL:   s.configStore.GetString(keyRerankBaseURL),
			APIKey:    s.configStore.GetString(keyRerankAPIKey),
			Model:     s.getString(keyRerankModel, d.Rerank.Model),
			Threshold: s.getFloat(keyRerankThresh, d.Rerank.Threshold),
			Boost:     s.getFloat(keyRerankBoost, d.Rerank.Boost),
			Timeout:   s.getSeconds(keyRerankTimeout, d.Rerank.Timeout),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   provider,
			Model:      s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[provider]),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.getInt(keyEmbedDims, 0),
			BatchSize:  s.getInt(keyEmbedBatch, d.Embedding.BatchSize),
			Timeout:    s.getSeconds(keyEmbedTimeout, d.Embedding.Timeout),
		},
		Layout: domain.LayoutSettings{
			Engine:  engine,
			BaseURL: s.getString(keyLayoutBaseURL, d.Layout.BaseURL),
			Timeout: s.getSeconds(keyLayoutTimeout, d.Layout.Timeout),
		},
		Parser: domain.ParserSettings{
			Workers: s.getInt(keyParserWorkers, d.Parser.Workers),
			Retries: s.getInt(keyParserRetries, d.Parser.Retries),
		},
		Server: domain.ServerSettings{
			Port: s.getInt(keyServerPort, d.Server.Port),
		},
	}

	if key := s.getenv(EnvEmbeddingAPIKey); key != "" {
		settings.Embedding.APIKey = key
	}
	if settings.Embedding.APIKey == "" && provider == domain.AIProviderGenAI {
		settings.Embedding.APIKey = s.getenv(EnvGeminiAPIKey)
	}
	if key := s.getenv(EnvRerankAPIKey); key != "" {
		settings.Rerank.APIKey = key
	}

	if err := validateSettings(settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// Set validates and stores one setting. Values arrive as strings from the
// CLI and are stored with the key's native type.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var typed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects an integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number", domain.ErrInvalidInput, key)
		}
		typed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
		}
		typed = b
	default:
		typed = value
	}

	switch key {
	case keyEmbedProvider:
		if !domain.AIProvider(value).IsValid() {
			return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, value)
		}
	case keyLayoutEngine:
		if !domain.LayoutEngineKind(value).IsValid() {
			return fmt.Errorf("%w: unknown layout engine %q", domain.ErrInvalidInput, value)
		}
	}

	if err := s.configStore.Set(key, typed); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

// Keys returns every recognised setting key.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func validateSettings(st domain.Settings) error {
	switch {
	case !st.Embedding.Provider.IsValid():
		return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, st.Embedding.Provider)
	case !st.Layout.Engine.IsValid():
		return fmt.Errorf("%w: unknown layout engine %q", domain.ErrInvalidInput, st.Layout.Engine)
	case st.Chunker.MaxChunkSize <= 0:
		return fmt.Errorf("%w: chunker.max_chunk_size must be positive", domain.ErrInvalidInput)
	case st.Chunker.Overlap < 0 || st.Chunker.Overlap >= st.Chunker.MaxChunkSize:
		return fmt.Errorf("%w: chunker.overlap must be in [0, max_chunk_size)", domain.ErrInvalidInput)
	case st.Retrieval.TopK <= 0 || st.Retrieval.RecallK < st.Retrieval.TopK:
		return fmt.Errorf("%w: retrieval needs 0 < top_k <= recall_k", domain.ErrInvalidInput)
	case st.Rerank.Boost < 0:
		return fmt.Errorf("%w: rerank.boost must not be negative", domain.ErrInvalidInput)
	case st.Parser.Workers <= 0 || st.Parser.Retries < 0:
		return fmt.Errorf("%w: parser.workers must be positive and parser.retries non-negative", domain.ErrInvalidInput)
	}
	return nil
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetInt(key)
	}
	return defaultVal
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetFloat(key)
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); ok {
		return s.configStore.GetBool(key)
	}
	return defaultVal
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	if secs := s.getInt(key, 0); secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
