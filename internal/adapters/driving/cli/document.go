package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	documentsJSON bool
	runsLimit     int
	runsJSON      bool
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "List stored documents",
	RunE:    runDocumentsList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get <document-id>",
	Short: "Show one stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show recent pipeline runs",
	Long: `Lists recorded pipeline runs, newest first, with the outcome of each
stage.`,
	RunE: runRuns,
}

func init() {
	documentsCmd.Flags().BoolVar(&documentsJSON, "json", false, "output as JSON")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum number of runs")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "output as JSON")

	documentsCmd.AddCommand(documentGetCmd)
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(runsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}

	docs, err := ingestService.Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if documentsJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	for _, d := range docs {
		cmd.Printf("  %4d  %-40s %s\n", d.ID, truncate(d.Filename, 40), d.CreatedAt.Format(time.DateTime))
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errNotConfigured("ingest")
	}
	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	doc, err := ingestService.Document(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	printTitle(cmd, fmt.Sprintf("Document %d", doc.ID))
	printField(cmd, "Filename", doc.Filename)
	printField(cmd, "Created", doc.CreatedAt.Format(time.DateTime))
	return nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	if runHistory == nil {
		return errNotConfigured("run history")
	}

	runs, err := runHistory.ListRuns(cmd.Context(), runsLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if runsJSON {
		return printJSON(cmd, runs)
	}
	if len(runs) == 0 {
		cmd.Println("No pipeline runs recorded.")
		return nil
	}

	for _, r := range runs {
		line := fmt.Sprintf("%s  %-30s %-10s %s", r.StartedAt.Format(time.DateTime),
			truncate(r.PDFName, 30), r.State, r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond))
		if r.Success {
			printSuccess(cmd, "%s", line)
		} else {
			printFailure(cmd, "%s", line)
		}

		stages := make([]string, 0, len(r.Stages))
		for _, s := range r.Stages {
			stages = append(stages, fmt.Sprintf("%s=%s", s.Stage, stageStatus(s)))
		}
		if len(stages) > 0 {
			printMuted(cmd, "    %s", strings.Join(stages, " "))
		}
		if r.Error != "" {
			printMuted(cmd, "    error: %s", r.Error)
		}
	}
	return nil
}
