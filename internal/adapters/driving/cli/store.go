package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var storeCmd = &cobra.Command{
	Use:   "store [chunks.json...]",
	Short: "Store chunk files with embeddings",
	Long: `Inserts every record of each chunk file into the chunk store under the
document named after the file, embedding each chunk.

Without arguments every chunk file in the output chunk directory is stored,
after *.json.json names have been normalized to *.json.`,
	RunE: runStore,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill <document-id>",
	Short: "Embed stored chunks that have no embedding",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackfill,
}

func init() {
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(backfillCmd)
}

func runStore(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	paths := args
	if len(paths) == 0 {
		if pipelineService == nil {
			return errNotConfigured("pipeline")
		}
		found, err := pipelineService.ChunkFiles()
		if err != nil {
			return err
		}
		paths = found
	}
	if len(paths) == 0 {
		cmd.Println("No chunk files to store.")
		return nil
	}

	var errs []error
	for _, path := range paths {
		report, err := ingestService.InsertChunks(cmd.Context(), path)
		if err != nil {
			printFailure(cmd, "✗ %s: %v", filepath.Base(path), err)
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			continue
		}
		printInsertReport(cmd, report)
	}
	return errors.Join(errs...)
}

func printInsertReport(cmd *cobra.Command, report domain.InsertReport) {
	printSuccess(cmd, "✓ %s → document %d", report.SourceFile, report.DocumentID)
	printField(cmd, "Inserted", report.Inserted)
	printField(cmd, "Embedded", report.Embedded)
	if report.Failed > 0 {
		printWarning(cmd, "  %d chunks failed; run 'clause backfill %d' to retry embeddings",
			report.Failed, report.DocumentID)
	}
}

func runBackfill(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	report, err := ingestService.ProcessEmbeddings(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}

	if report.Pending == 0 {
		cmd.Printf("Document %d has no chunks without embeddings.\n", id)
		return nil
	}
	cmd.Printf("Document %d: %d of %d pending chunks embedded\n", id, report.Updated, report.Pending)
	if report.Failed > 0 {
		printWarning(cmd, "%d chunks still have no embedding", report.Failed)
	}
	return nil
}

func parseDocumentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: document id must be a positive integer, got %q", domain.ErrInvalidInput, s)
	}
	return id, nil
}
