package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpus-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/corpus-rag/internal/adapters/driving/watcher"
	"github.com/custodia-labs/corpus-rag/internal/logger"
)

var (
	servePort    int
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the corpus build, retrieval, viewer and glossary endpoints over
HTTP. The glossary directory is watched and reloaded when files change.

Endpoints:
  POST   /corpus/build[?wait=true]
  GET    /corpus/status
  POST   /corpus/retrieve
  GET    /corpus/files
  GET    /corpus/files/:id?offset=&limit=&anchor=
  GET    /corpus/files/:id/meta
  GET    /glossary
  POST   /glossary/upload
  DELETE /glossary/:filename`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (0 = configured server.port)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not watch the glossary directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if builder == nil || retriever == nil || viewer == nil || glossaryService == nil {
		return errors.New("corpus services not configured")
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Builder:   builder,
		Retriever: retriever,
		Viewer:    viewer,
		Glossary:  glossaryService,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if !serveNoWatch && glossaryDir != "" {
		w, err := watcher.NewGlossaryWatcher(glossaryDir, glossaryService)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			w.Stop()
			return err
		}
		defer w.Stop()
	}

	port := servePort
	if port == 0 {
		port = serverPort
	}
	addr := fmt.Sprintf(":%d", port)
	cmd.Printf("Corpus API listening on http://localhost%s\n", addr)
	logger.Info("http: serving on %s", addr)

	return server.Run(ctx, addr)
}
