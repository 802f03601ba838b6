// Package cli implements the corpus command line with cobra.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpus-rag/internal/core/ports/driven"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

// EnvHome overrides the default data directory.
const EnvHome = "CORPUS_HOME"

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose bool
	dataDir string
)

// Services wired by Bootstrap. Commands check for nil and report
// "... not configured".
var (
	builder         driving.CorpusBuilder
	retriever       driving.Retriever
	viewer          driving.CorpusViewer
	glossaryService driving.GlossaryService
	settingsService driving.SettingsService
	validator       driven.AIConfigValidator
	glossaryDir     string
	serverPort      int
	closeServices   func() error
)

// Services is what the composition root hands to the CLI.
type Services struct {
	Builder   driving.CorpusBuilder
	Retriever driving.Retriever
	Viewer    driving.CorpusViewer
	Glossary  driving.GlossaryService
	Settings  driving.SettingsService
	Validator driven.AIConfigValidator

	// GlossaryDir is watched by `corpus serve` for hot reload.
	GlossaryDir string

	// ServerPort is the default port for `corpus serve`.
	ServerPort int

	// Close releases the index store and model clients.
	Close func() error
}

// Bootstrap builds the services rooted at a data directory.
type Bootstrap func(ctx context.Context, dataDir string) (*Services, error)

var bootstrap Bootstrap

var rootCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Expert document corpus with cited retrieval",
	Long: `corpus turns a directory of expert documents (Word, PDF, PowerPoint,
Excel, Markdown, HTML) into a searchable knowledge base.

It parses every file to Markdown, splits it into heading-aware chunks,
indexes them for semantic search and answers queries with cited evidence,
or says plainly that the corpus has no evidence.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "",
		"data directory (default $"+EnvHome+" or ~/.corpus)")
}

// SetVersion sets the version reported by `corpus version`.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetServices installs services directly, bypassing Bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	builder = s.Builder
	retriever = s.Retriever
	viewer = s.Viewer
	glossaryService = s.Glossary
	settingsService = s.Settings
	validator = s.Validator
	glossaryDir = s.GlossaryDir
	serverPort = s.ServerPort
	closeServices = s.Close
}

// Execute runs the root command. boot is called once flags are parsed and
// whatever it opened is closed before Execute returns.
func Execute(ctx context.Context, boot Bootstrap) error {
	bootstrap = boot
	err := rootCmd.ExecuteContext(ctx)
	if closeErr := shutdown(); err == nil {
		err = closeErr
	}
	return err
}

// ResolveDataDir picks the data directory: flag, then $CORPUS_HOME, then ~/.corpus.
func ResolveDataDir(flagValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if env := os.Getenv(EnvHome); env != "" {
		return filepath.Abs(env)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".corpus"), nil
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || cmd == versionCmd {
		return nil
	}

	dir, err := ResolveDataDir(dataDir)
	if err != nil {
		return err
	}
	logger.Debug("data directory: %s", dir)

	svc, err := bootstrap(cmd.Context(), dir)
	if err != nil {
		return fmt.Errorf("starting up: %w", err)
	}
	SetServices(svc)
	return nil
}

func shutdown() error {
	defer logger.Sync()
	if closeServices == nil {
		return nil
	}
	closeFn := closeServices
	closeServices = nil
	if err := closeFn(); err != nil {
		return fmt.Errorf("closing services: %w", err)
	}
	return nil
}
