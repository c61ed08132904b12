package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/askdoc/internal/core/domain"
	"github.com/custodia-labs/askdoc/internal/normalisers"
)

var (
	addTitle string
	addMIME  string
)

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Upload a document and ingest it",
	Long: `Reads a file, extracts its text, splits it into chunks, embeds every
chunk and stores the result. The MIME type is detected from the file
extension unless --mime is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [doc-id]",
	Short: "Re-chunk and re-embed a stored document",
	Long: `Processes a stored document again. The new chunk set replaces the old
one in a single step; on failure the previous chunks are kept.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	addCmd.Flags().StringVar(&addTitle, "title", "", "document title (default file name)")
	addCmd.Flags().StringVar(&addMIME, "mime", "", "content type (default detected from extension)")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(ingestCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	path := args[0]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	mimeType := addMIME
	if mimeType == "" {
		mimeType = normalisers.DetectMIMEType(path)
	}
	uri := path
	if abs, err := filepath.Abs(path); err == nil {
		uri = abs
	}

	report, err := ingestService.Ingest(contextOf(cmd), domain.IngestRequest{
		Raw: &domain.RawDocument{
			Owner:    resolveOwner(),
			URI:      uri,
			Title:    addTitle,
			MIMEType: mimeType,
			Content:  content,
		},
	})
	if err != nil {
		return err
	}

	printReport(cmd, "Added", report)
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if documentService != nil {
		doc, err := documentService.Get(contextOf(cmd), args[0])
		if err != nil {
			return fmt.Errorf("failed to get document: %w", err)
		}
		if !doc.VisibleTo(resolveOwner()) {
			return fmt.Errorf("failed to get document: %w", domain.ErrForbidden)
		}
	}

	report, err := ingestService.Reprocess(contextOf(cmd), args[0])
	if err != nil {
		return err
	}

	printReport(cmd, "Ingested", report)
	return nil
}

func printReport(cmd *cobra.Command, verb string, report *domain.IngestReport) {
	cmd.Printf("%s document %s\n", verb, report.DocumentID)
	cmd.Printf("  Chunks:     %d\n", report.ChunkCount)
	if report.Model != "" {
		cmd.Printf("  Model:      %s (%d dims)\n", report.Model, report.Dimensions)
	}
	cmd.Printf("  Duration:   %s\n", report.Duration.Round(time.Millisecond))
}
