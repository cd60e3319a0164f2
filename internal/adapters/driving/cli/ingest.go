package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var (
	ingestPipelineOnly bool
	ingestJSON         bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [pdf...]",
	Short: "Process contract PDFs end to end",
	Long: `Runs the full flow for each PDF: partition, enrich, chunk, annotate,
store the chunks with embeddings and extract every catalogue variable.

Without arguments every PDF in the input directory is processed. Stages
whose artifacts already exist are skipped, so an interrupted run resumes.

Use --pipeline-only to stop after the stage artifacts are written.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestPipelineOnly, "pipeline-only", false, "only run partition, enrich, chunk and annotate")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestPipelineOnly {
		return runPipelineOnly(cmd, args)
	}
	if contractService == nil {
		return errNotConfigured("contract")
	}

	paths := args
	if len(paths) == 0 {
		found, err := inputPDFs()
		if err != nil {
			return err
		}
		paths = found
	}
	if len(paths) == 0 {
		cmd.Println("No PDF files to process.")
		return nil
	}

	results := make(map[string]*domain.UploadResult, len(paths))
	var errs []error
	for _, path := range paths {
		result, err := contractService.Ingest(cmd.Context(), path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
			if !ingestJSON {
				printFailure(cmd, "✗ %s: %v", filepath.Base(path), err)
			}
			continue
		}
		results[filepath.Base(path)] = result
		if !ingestJSON {
			printUploadResult(cmd, filepath.Base(path), result)
		}
	}

	if ingestJSON {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

func printUploadResult(cmd *cobra.Command, name string, result *domain.UploadResult) {
	printSuccess(cmd, "✓ %s → document %d", name, result.DocumentID)
	names := make([]string, 0, len(result.ProcessingResults))
	for k := range result.ProcessingResults {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		printField(cmd, k, truncate(result.ProcessingResults[k], 100))
	}
	cmd.Println()
}

func runPipelineOnly(cmd *cobra.Command, args []string) error {
	if pipelineService == nil {
		return errNotConfigured("pipeline")
	}

	var results []*domain.PipelineResult
	var errs []error
	if len(args) == 0 {
		res, err := pipelineService.ProcessDirectory(cmd.Context())
		results = res
		if err != nil {
			errs = append(errs, err)
		}
	} else {
		for _, path := range args {
			res, err := pipelineService.Process(cmd.Context(), path)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), err))
				continue
			}
			results = append(results, res)
		}
	}

	if ingestJSON {
		if err := printJSON(cmd, results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			printPipelineResult(cmd, res)
		}
	}

	for _, res := range results {
		if err := res.FatalError(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(res.PDFPath), err))
		}
	}
	return errors.Join(errs...)
}

func printPipelineResult(cmd *cobra.Command, res *domain.PipelineResult) {
	if res.Success() {
		printSuccess(cmd, "✓ %s", filepath.Base(res.PDFPath))
	} else {
		printFailure(cmd, "✗ %s", filepath.Base(res.PDFPath))
	}
	for _, o := range res.Stages {
		printField(cmd, string(o.Stage), stageStatus(o))
	}
	if res.ChunkPath != "" {
		printMuted(cmd, "  chunks: %s", res.ChunkPath)
	}
	cmd.Println()
}

// stageStatus describes a stage outcome. Persisted outcomes carry only
// the error text.
func stageStatus(o domain.StageOutcome) string {
	switch {
	case o.Err != nil:
		return "failed: " + o.Err.Error()
	case o.Error != "":
		return "failed: " + o.Error
	case o.Skipped:
		return "skipped"
	default:
		return "ok"
	}
}

// inputPDFs lists the PDFs in the configured input directory.
func inputPDFs() ([]string, error) {
	if appSettings == nil {
		return nil, errors.New("settings not loaded")
	}
	dir := appSettings.Directories.InputDir
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading input directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
