package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `View the loaded configuration and configure the AI providers.

Values come from the config file, then .env, then CLAUSE_* environment
variables. API keys are masked in the output.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configuration and ping the providers",
	RunE:  runConfigCheck,
}

var configEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure the embedding provider",
	RunE:  runConfigEmbedding,
}

var configLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure the LLM provider",
	Long:  `Configure the LLM provider used for tagging, image descriptions and extraction.`,
	RunE:  runConfigLLM,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configEmbeddingCmd)
	configCmd.AddCommand(configLLMCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	printMuted(cmd, "# %s", settingsService.Path())
	cmd.Println()

	printTitle(cmd, "[directories]")
	printField(cmd, "Input", settings.Directories.InputDir)
	printField(cmd, "Output", settings.Directories.OutputDir)
	printField(cmd, "Data", settings.Directories.DataDir)
	cmd.Println()

	printTitle(cmd, "[partitioner]")
	printField(cmd, "Kind", settings.Partitioner.Kind)
	if settings.Partitioner.Kind == domain.PartitionerUnstructured {
		printField(cmd, "API URL", settings.Partitioner.APIURL)
		printField(cmd, "API Key", keyStatus(settings.Partitioner.APIKey))
		printField(cmd, "Strategy", settings.Partitioner.Strategy)
	}
	printField(cmd, "Chunker", settings.Chunking.Kind)
	printField(cmd, "Max characters", settings.Chunking.MaxCharacters)
	printField(cmd, "Overlap", settings.Chunking.Overlap)
	cmd.Println()

	printTitle(cmd, "[embedding]")
	printField(cmd, "Provider", settings.Embedding.Provider.Description())
	printField(cmd, "Model", settings.Embedding.Model)
	if settings.Embedding.Provider.IsLocal() {
		printField(cmd, "Base URL", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		printField(cmd, "API Key", keyStatus(settings.Embedding.APIKey))
	}
	printField(cmd, "Status", configuredStatus(settings.Embedding.IsConfigured()))
	cmd.Println()

	printTitle(cmd, "[llm]")
	printField(cmd, "Provider", settings.LLM.Provider.Description())
	printField(cmd, "Model", settings.LLM.Model)
	printField(cmd, "Vision model", settings.LLM.VisionModel)
	printField(cmd, "Extraction model", settings.LLM.ExtractionModel)
	if settings.LLM.Provider.IsLocal() {
		printField(cmd, "Base URL", settings.LLM.BaseURL)
	}
	if settings.LLM.Provider.RequiresAPIKey() {
		printField(cmd, "API Key", keyStatus(settings.LLM.APIKey))
	}
	printField(cmd, "Status", configuredStatus(settings.LLM.IsConfigured()))
	cmd.Println()

	printTitle(cmd, "[retrieval]")
	printField(cmd, "Threshold", settings.Retrieval.Threshold)
	printField(cmd, "Count", settings.Retrieval.Count)
	cmd.Println()

	printTitle(cmd, "[server]")
	printField(cmd, "Address", settings.Server.Addr)
	printField(cmd, "Request timeout", settings.Server.RequestTimeout.Std())
	cmd.Println()

	printTitle(cmd, "[archive]")
	printField(cmd, "Enabled", yesNo(settings.Archive.Enabled))
	if settings.Archive.Enabled {
		printField(cmd, "Endpoint", settings.Archive.Endpoint)
		printField(cmd, "Bucket", settings.Archive.Bucket)
	}
	cmd.Println()

	printTitle(cmd, "[cache]")
	printField(cmd, "Enabled", yesNo(settings.Cache.Enabled))
	if settings.Cache.Enabled {
		printField(cmd, "Address", settings.Cache.Addr)
		printField(cmd, "TTL", settings.Cache.TTL.Std())
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		printWarning(cmd, "Warning: %v", err)
		cmd.Println("Run 'clause config check' for details.")
	} else {
		printSuccess(cmd, "Configuration is valid.")
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}

	var failed bool
	check := func(name string, err error) {
		if err != nil {
			failed = true
			printFailure(cmd, "✗ %s: %v", name, err)
			return
		}
		printSuccess(cmd, "✓ %s", name)
	}

	check("settings", settingsService.Validate())
	check("embedding provider", settingsService.ValidateEmbeddingConfig())
	check("llm provider", settingsService.ValidateLLMConfig())

	if failed {
		return errors.New("configuration check failed")
	}
	return nil
}

func runConfigEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		kind:      "embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		set:       settingsService.SetEmbeddingProvider,
		validate:  settingsService.ValidateEmbeddingConfig,
	})
}

func runConfigLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings")
	}
	return configureProvider(cmd, bufio.NewReader(cmd.InOrStdin()), providerPrompt{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		set:       settingsService.SetLLMProvider,
		validate:  settingsService.ValidateLLMConfig,
	})
}

type providerPrompt struct {
	kind      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	set       func(provider domain.AIProvider, model, apiKey string) error
	validate  func() error
}

func configureProvider(cmd *cobra.Command, reader *bufio.Reader, p providerPrompt) error {
	cmd.Printf("Select %s provider\n", p.kind)
	for i, provider := range p.providers {
		cmd.Printf("  %d. %s\n", i+1, provider.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	selected := p.providers[parseChoice(readLine(reader), len(p.providers), 1)-1]

	defaultModel := p.models[selected]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	var apiKey string
	if selected.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword(reader)
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := p.set(selected, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", p.kind, err)
	}

	cmd.Print("Validating configuration... ")
	if err := p.validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", p.kind, err)
	}
	cmd.Println("OK")

	cmd.Printf("%s provider configured: %s (%s)\n", p.kind, selected.Description(), model)
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal, otherwise a
// plain line from reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func keyStatus(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

func configuredStatus(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
