package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var glossaryCmd = &cobra.Command{
	Use:   "glossary",
	Short: "Manage the expert glossary",
	Long: `The glossary maps expert terms to definitions and synonym groups.
Chunks that mention a glossary term get a score boost during retrieval, and
synonyms widen recall. Glossary files are CSV, JSON or YAML.`,
}

var glossaryUploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Add or replace a glossary file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGlossaryUpload,
}

var glossaryEntries bool

var glossaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List glossary files",
	Args:  cobra.NoArgs,
	RunE:  runGlossaryList,
}

var glossaryDeleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Remove a glossary file",
	Args:  cobra.ExactArgs(1),
	RunE:  runGlossaryDelete,
}

func init() {
	glossaryListCmd.Flags().BoolVar(&glossaryEntries, "entries", false, "also print every term and definition")
	glossaryCmd.AddCommand(glossaryUploadCmd)
	glossaryCmd.AddCommand(glossaryListCmd)
	glossaryCmd.AddCommand(glossaryDeleteCmd)
	rootCmd.AddCommand(glossaryCmd)
}

func runGlossaryUpload(cmd *cobra.Command, args []string) error {
	if glossaryService == nil {
		return errors.New("glossary service not configured")
	}

	path := args[0]
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the user
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	delta, err := glossaryService.Upload(cmd.Context(), filepath.Base(path), data)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	verb := "Added"
	if delta.Replaced {
		verb = "Replaced"
	}
	cmd.Printf("%s %s: %d terms, %d synonym groups (%d terms total)\n",
		verb, delta.Filename, delta.TermsAdded, delta.SynonymGroupsAdded, delta.TotalTerms)
	return nil
}

func runGlossaryList(cmd *cobra.Command, _ []string) error {
	if glossaryService == nil {
		return errors.New("glossary service not configured")
	}

	files := glossaryService.List()
	if len(files) == 0 {
		cmd.Println("No glossary files loaded.")
		return nil
	}

	cmd.Println("Glossary files:")
	for _, f := range files {
		cmd.Printf("  %-32s %-5s %4d terms  %3d synonym groups\n", f.Name, f.Format, f.TermCount, f.SynonymGroups)
	}

	if glossaryEntries {
		cmd.Println()
		for _, e := range glossaryService.Entries() {
			cmd.Printf("  %s: %s\n", e.Term, e.Definition)
		}
	}
	return nil
}

func runGlossaryDelete(cmd *cobra.Command, args []string) error {
	if glossaryService == nil {
		return errors.New("glossary service not configured")
	}

	if err := glossaryService.Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}
