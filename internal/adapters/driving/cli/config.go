package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Settings live in config.toml in the data directory. API keys can also be
supplied through CORPUS_EMBEDDING_API_KEY, CORPUS_RERANK_API_KEY and
GEMINI_API_KEY, which take precedence over the file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting by its dot-key, for example:

  corpus config set embedding.provider ollama
  corpus config set rerank.base_url http://localhost:8080
  corpus config set retrieval.top_k 5

Run 'corpus config keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List setting keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the embedding and rerank services are reachable",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil && !errors.Is(err, domain.ErrInvalidInput) {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("[Corpus]")
	cmd.Printf("  Source:   %s\n", s.Corpus.SourceDir)
	cmd.Printf("  Markdown: %s\n", s.Corpus.OutputDir)
	cmd.Printf("  Index:    %s\n", s.Corpus.IndexDir)
	cmd.Printf("  Glossary: %s\n", s.Corpus.GlossaryDir)
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Max chunk size: %d\n", s.Chunker.MaxChunkSize)
	cmd.Printf("  Overlap: %d\n", s.Chunker.Overlap)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  Recall K: %d\n", s.Retrieval.RecallK)
	cmd.Printf("  Top K: %d\n", s.Retrieval.TopK)
	cmd.Printf("  Expand synonyms: %t\n", s.Retrieval.ExpandSynonyms)
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", s.Embedding.Provider.Description())
	if s.Embedding.Provider != domain.AIProviderNone {
		cmd.Printf("  Model: %s\n", s.Embedding.Model)
		if s.Embedding.BaseURL != "" {
			cmd.Printf("  Base URL: %s\n", s.Embedding.BaseURL)
		}
		if s.Embedding.Provider.RequiresAPIKey() {
			cmd.Printf("  API Key: %s\n", displayKey(s.Embedding.APIKey))
		}
	}
	cmd.Printf("  Status: %s\n", configuredLabel(s.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[Rerank]")
	if s.Rerank.IsConfigured() {
		cmd.Printf("  Base URL: %s\n", s.Rerank.BaseURL)
		cmd.Printf("  Model: %s\n", s.Rerank.Model)
		if s.Rerank.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(s.Rerank.APIKey))
		}
	}
	cmd.Printf("  Threshold: %.2f\n", s.Rerank.Threshold)
	cmd.Printf("  Glossary boost: %.0f%%\n", s.Rerank.Boost*100)
	cmd.Printf("  Status: %s\n", configuredLabel(s.Rerank.IsConfigured()))
	cmd.Println()

	cmd.Println("[Layout]")
	cmd.Printf("  Engine: %s\n", s.Layout.Engine)
	if s.Layout.Engine == domain.LayoutEngineDocling {
		cmd.Printf("  Base URL: %s\n", s.Layout.BaseURL)
	}
	cmd.Printf("  Workers: %d\n", s.Parser.Workers)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Port: %d\n", s.Server.Port)
	cmd.Println()

	if err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else if !s.Embedding.IsConfigured() || !s.Rerank.IsConfigured() {
		cmd.Println("Retrieval runs degraded until an embedding provider and reranker are configured.")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if strings.HasSuffix(key, "api_key") {
		shown = maskAPIKey(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil || validator == nil {
		return errors.New("settings service not configured")
	}

	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	ctx := cmd.Context()
	var failed bool

	cmd.Print("Embedding: ")
	switch {
	case !s.Embedding.IsConfigured():
		cmd.Println("not configured (hash fallback)")
	default:
		if err := validator.ValidateEmbedding(ctx, &s.Embedding); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			failed = true
		} else {
			cmd.Println("ok")
		}
	}

	cmd.Print("Rerank:    ")
	switch {
	case !s.Rerank.IsConfigured():
		cmd.Println("not configured (vector scores only)")
	default:
		if err := validator.ValidateRerank(ctx, &s.Rerank); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			failed = true
		} else {
			cmd.Println("ok")
		}
	}

	if failed {
		return errors.New("one or more services are unreachable")
	}
	return nil
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func displayKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
