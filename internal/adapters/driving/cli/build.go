package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
	"github.com/custodia-labs/corpus-rag/internal/core/ports/driving"
)

// progressInterval is how often build progress is polled.
var progressInterval = 500 * time.Millisecond

var buildJSON bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the corpus index",
	Long: `Parses every supported file in the source directory to Markdown, chunks
it and builds a new index generation. The previous index keeps serving until
the new one is committed. Files that fail to parse are skipped and listed.`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show build progress and index state",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "output the build report as JSON")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output status as JSON")
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(statusCmd)
}

func runBuild(cmd *cobra.Command, _ []string) error {
	if builder == nil {
		return errors.New("build service not configured")
	}

	if !buildJSON {
		cmd.Println("Building corpus...")
	}

	report, err := buildWithProgress(cmd.Context(), cmd, builder, !buildJSON)
	if err != nil {
		if report != nil && !buildJSON {
			printReport(cmd, report)
		}
		return fmt.Errorf("build failed: %w", err)
	}

	if buildJSON {
		return printJSON(cmd, report)
	}
	printReport(cmd, report)
	return nil
}

// buildWithProgress runs a build while printing stage and file counters.
func buildWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	b driving.CorpusBuilder,
	show bool,
) (*domain.BuildReport, error) {
	type result struct {
		report *domain.BuildReport
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := b.Build(ctx)
		done <- result{report, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var last driving.BuildStatus
	for {
		select {
		case r := <-done:
			if show && last.FilesTotal > 0 {
				cmd.Println()
			}
			return r.report, r.err
		case <-ticker.C:
			if !show {
				continue
			}
			status := b.Status()
			if status.Stage == last.Stage && status.FilesProcessed == last.FilesProcessed {
				continue
			}
			if status.FilesTotal > 0 {
				cmd.Printf("\r%-12s %d/%d files", status.Stage, status.FilesProcessed, status.FilesTotal)
			}
			last = status
		}
	}
}

func printReport(cmd *cobra.Command, r *domain.BuildReport) {
	if r.Outcome == domain.BuildOutcomeFailed {
		cmd.Printf("Build failed: %s\n", r.Error)
	} else {
		cmd.Printf("Build %s committed in %s.\n", r.Generation, r.Duration().Round(time.Millisecond))
	}
	cmd.Printf("  Files discovered: %d\n", r.FilesDiscovered)
	cmd.Printf("  Files parsed:     %d\n", r.FilesParsed)
	cmd.Printf("  Files skipped:    %d\n", r.FilesSkipped())
	cmd.Printf("  Chunks indexed:   %d\n", r.ChunksProduced)
	if r.Degraded {
		cmd.Println("  Warning: index built with the fallback embedding (no embedding provider configured).")
	}
	for _, w := range r.Warnings {
		cmd.Printf("  Warning: %s\n", w)
	}
	for _, s := range r.Skipped {
		cmd.Printf("  - %s: %s\n", s.Path, s.Reason)
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if builder == nil {
		return errors.New("build service not configured")
	}

	status := builder.Status()
	if statusJSON {
		return printJSON(cmd, status)
	}

	if status.Building {
		cmd.Printf("Building: %s (%d/%d files)\n", status.Stage, status.FilesProcessed, status.FilesTotal)
	} else {
		cmd.Println("Building: no")
	}

	if status.IndexLoaded {
		cmd.Printf("Index:    generation %s, %d chunks\n", status.Generation, status.IndexedChunks)
	} else {
		cmd.Println("Index:    not built (run 'corpus build')")
	}

	if r := status.LastReport; r != nil {
		cmd.Printf("Last build: %s at %s (%d parsed, %d skipped)\n",
			r.Outcome, r.FinishedAt.Format(time.RFC3339), r.FilesParsed, r.FilesSkipped())
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
