package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

var retrieveJSON bool

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve cited evidence for a question",
	Long: `Runs the full retrieval path: vector recall, reranking with the glossary
boost, and the confidence gate. Prints the top chunks with their source file
and heading path, or "no evidence" when nothing clears the threshold.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retriever == nil {
		return errors.New("retrieval service not configured")
	}

	query := strings.Join(args, " ")
	result, err := retriever.Retrieve(cmd.Context(), query)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		return printJSON(cmd, result)
	}
	printRetrieval(cmd, result)
	return nil
}

func printRetrieval(cmd *cobra.Command, r *domain.RetrievalResult) {
	for _, reason := range r.DegradedReasons {
		cmd.Printf("Warning: %s\n", reason)
	}

	if !r.Found {
		cmd.Println(domain.NoEvidenceMessage)
		if r.Reason != "" {
			cmd.Printf("  (%s)\n", r.Reason)
		}
		return
	}

	for i := range r.Items {
		item := &r.Items[i]
		c := item.Citation
		cmd.Printf("[%d] %s (%.3f)\n", i+1, c.SourcePath, item.FinalScore)
		if len(c.HeadingPath) > 0 {
			cmd.Printf("    %s\n", strings.Join(c.HeadingPath, " > "))
		}
		cmd.Printf("    corpus show %s --anchor %d\n", c.DocumentID, c.ChunkIndex)
		if item.GlossaryBoost {
			cmd.Println("    glossary match")
		}
		cmd.Println()
		cmd.Println(indent(item.Content, "    "))
		cmd.Println()
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
