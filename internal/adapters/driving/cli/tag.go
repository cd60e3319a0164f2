package cli

import (
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var variablesJSON bool

var tagCmd = &cobra.Command{
	Use:   "tag [text]",
	Short: "Tag text with the rule tagger",
	Long: `Wraps parties, legal terms, dates, money amounts and other entities in
semantic tags such as <PARTY>...</PARTY>. Reads standard input when no text
is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTag,
}

var variablesCmd = &cobra.Command{
	Use:   "variables",
	Short: "List the contract variable catalogue",
	RunE:  runVariables,
}

func init() {
	variablesCmd.Flags().BoolVar(&variablesJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(variablesCmd)
}

func runTag(cmd *cobra.Command, args []string) error {
	if taggingService == nil {
		return errNotConfigured("tagging")
	}

	var text string
	if len(args) == 1 {
		text = args[0]
	} else {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return err
		}
		text = strings.TrimRight(string(data), "\n")
	}

	cmd.Println(taggingService.Tag(text))
	return nil
}

func runVariables(cmd *cobra.Command, _ []string) error {
	if extractionService == nil {
		return errNotConfigured("extraction")
	}

	vars := extractionService.Variables()
	if variablesJSON {
		return printJSON(cmd, vars)
	}

	for _, v := range vars {
		printTitle(cmd, v.Name)
		printField(cmd, "Retrieve", truncate(v.RetrieveQuestion, 120))
		printField(cmd, "Generate", truncate(v.GenerateQuestion, 120))
		cmd.Println()
	}
	cmd.Printf("Total: %d variables\n", len(vars))
	return nil
}
