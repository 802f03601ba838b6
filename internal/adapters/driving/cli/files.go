package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/corpus-rag/internal/core/domain"
)

var filesJSON bool

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE:  runFiles,
}

var (
	showOffset int
	showLimit  int
	showAnchor int
	showJSON   bool
)

var showCmd = &cobra.Command{
	Use:   "show <file-id>",
	Short: "Show a page of a document's chunks",
	Long: `Prints a page of chunks from an indexed document. With --anchor the page
is centred on that chunk index, which is how a citation is opened in context.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

var metaCmd = &cobra.Command{
	Use:   "meta <file-id>",
	Short: "Show a document's heading outline",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeta,
}

func init() {
	filesCmd.Flags().BoolVar(&filesJSON, "json", false, "output as JSON")
	showCmd.Flags().IntVar(&showOffset, "offset", 0, "index of the first chunk")
	showCmd.Flags().IntVar(&showLimit, "limit", 0, "chunks per page (0 = default)")
	showCmd.Flags().IntVar(&showAnchor, "anchor", -1, "centre the page on this chunk index")
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(metaCmd)
}

func runFiles(cmd *cobra.Command, _ []string) error {
	if viewer == nil {
		return errors.New("viewer service not configured")
	}

	files, err := viewer.ListFiles(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing files: %w", err)
	}

	if filesJSON {
		return printJSON(cmd, files)
	}
	if len(files) == 0 {
		cmd.Println("No documents indexed. Run 'corpus build' first.")
		return nil
	}

	for _, f := range files {
		cmd.Printf("%s  %-8s %4d chunks  %s\n", f.ID, f.Format, f.ChunkCount, f.SourcePath)
	}
	cmd.Printf("\n%d documents\n", len(files))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	if viewer == nil {
		return errors.New("viewer service not configured")
	}

	req := domain.PageRequest{Offset: showOffset, Limit: showLimit}
	if showAnchor >= 0 {
		anchor := showAnchor
		req.Anchor = &anchor
	}

	page, err := viewer.Chunks(cmd.Context(), args[0], req)
	if err != nil {
		return fmt.Errorf("reading chunks: %w", err)
	}

	if showJSON {
		return printJSON(cmd, page)
	}

	if len(page.Chunks) == 0 {
		cmd.Printf("%s: no chunks at offset %d (total %d)\n", page.Document.SourcePath, page.Offset, page.Total)
		return nil
	}

	cmd.Printf("%s (chunks %d-%d of %d)\n\n",
		page.Document.SourcePath, page.Offset, page.Offset+len(page.Chunks)-1, page.Total)
	for i := range page.Chunks {
		c := &page.Chunks[i]
		cmd.Printf("--- #%d %s\n", c.Index, strings.Join(c.HeadingPath, " > "))
		cmd.Println(c.Content)
		cmd.Println()
	}
	if page.HasMore {
		cmd.Printf("More: corpus show %s --offset %d\n", args[0], page.Offset+len(page.Chunks))
	}
	return nil
}

func runMeta(cmd *cobra.Command, args []string) error {
	if viewer == nil {
		return errors.New("viewer service not configured")
	}

	meta, err := viewer.Meta(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("reading metadata: %w", err)
	}

	d := meta.Document
	cmd.Printf("%s\n", d.SourcePath)
	cmd.Printf("  ID:       %s\n", d.ID)
	cmd.Printf("  Format:   %s\n", d.Format)
	cmd.Printf("  Markdown: %s\n", d.MarkdownPath)
	cmd.Printf("  Chunks:   %d\n", d.ChunkCount)
	cmd.Printf("  Images:   %d\n", d.ImageCount)
	if len(meta.Headings) > 0 {
		cmd.Println()
		for _, h := range meta.Headings {
			cmd.Printf("%s%s  (#%d)\n", strings.Repeat("  ", max(h.Level-1, 0)), h.Title, h.ChunkIndex)
		}
	}
	return nil
}
