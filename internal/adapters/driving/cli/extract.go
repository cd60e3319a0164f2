package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var (
	extractVariables []string
	extractJSON      bool
	queryExplain     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <document-id>",
	Short: "Extract contract variables from a stored document",
	Long: `Answers each catalogue variable for a stored document: similar chunks are
retrieved for the variable's retrieval question and the LLM extracts the
value from them. Variables without retrieved context are omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var queryCmd = &cobra.Command{
	Use:   "query <document-id> <variable>",
	Short: "Answer one variable and show the retrieved context",
	Args:  cobra.ExactArgs(2),
	RunE:  runQuery,
}

func init() {
	extractCmd.Flags().StringSliceVar(&extractVariables, "variable", nil, "variables to extract (default: all)")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "output results as JSON")
	queryCmd.Flags().BoolVar(&queryExplain, "explain", false, "print the retrieved chunks")
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(queryCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractionService == nil {
		return errNotConfigured("extraction")
	}
	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	vars, err := selectVariables(extractionService.Variables(), extractVariables)
	if err != nil {
		return err
	}

	results := extractionService.ProcessVariables(cmd.Context(), vars, id)
	if extractJSON {
		return printJSON(cmd, results)
	}

	printTitle(cmd, fmt.Sprintf("Document %d", id))
	names := make([]string, 0, len(vars))
	for _, v := range vars {
		names = append(names, v.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		value, ok := results[name]
		if !ok {
			printMuted(cmd, "  %s: (no answer)", name)
			continue
		}
		printField(cmd, name, value)
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	if extractionService == nil {
		return errNotConfigured("extraction")
	}
	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}
	v, ok := domain.FindVariable(extractionService.Variables(), args[1])
	if !ok {
		return fmt.Errorf("%w: unknown variable %q", domain.ErrInvalidInput, args[1])
	}

	answer, err := extractionService.Query(cmd.Context(), v, id)
	if errors.Is(err, domain.ErrNotFound) {
		cmd.Printf("No chunks of document %d match %s.\n", id, v.Name)
		return nil
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	printField(cmd, v.Name, answer.Value)
	if queryExplain {
		cmd.Println()
		printTitle(cmd, "Retrieved context")
		for i, m := range answer.Matches {
			cmd.Printf("  [%d] page %d, similarity %.3f\n", i+1, m.PageNumber, m.Similarity)
			printMuted(cmd, "      %s", truncate(m.Text, 200))
		}
	}
	return nil
}

// selectVariables picks the named catalogue entries, or all of them when
// names is empty.
func selectVariables(catalogue []domain.Variable, names []string) ([]domain.Variable, error) {
	if len(names) == 0 {
		return catalogue, nil
	}
	vars := make([]domain.Variable, 0, len(names))
	for _, name := range names {
		v, ok := domain.FindVariable(catalogue, name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown variable %q", domain.ErrInvalidInput, name)
		}
		vars = append(vars, v)
	}
	return vars, nil
}
