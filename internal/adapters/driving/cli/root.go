// Package cli provides the clause command line interface.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
	"github.com/custodia-labs/clause/internal/core/ports/driving"
	"github.com/custodia-labs/clause/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// Services configured by SetServices. Commands check for nil and fail with
// a "not configured" error.
var (
	settingsService   driving.SettingsService
	contractService   driving.ContractService
	pipelineService   driving.PipelineService
	ingestService     driving.IngestService
	extractionService driving.ExtractionService
	taggingService    driving.TaggingService
	runHistory        driving.RunHistory
	appSettings       *domain.AppSettings
	closeServices     func() error
)

// Services bundles the core services the commands drive.
type Services struct {
	Settings   driving.SettingsService
	Contract   driving.ContractService
	Pipeline   driving.PipelineService
	Ingest     driving.IngestService
	Extraction driving.ExtractionService
	Tagging    driving.TaggingService
	Runs       driving.RunHistory

	// AppSettings is the loaded configuration.
	AppSettings *domain.AppSettings

	// Close releases storage and provider connections.
	Close func() error
}

// Initializer builds the services from the config file at path. An empty
// path selects the default location.
type Initializer func(ctx context.Context, configPath string) (*Services, error)

var initializer Initializer

// skipInit marks commands that run without services.
const skipInit = "skip-init"

var rootCmd = &cobra.Command{
	Use:   "clause",
	Short: "Contract PDF processing and variable extraction",
	Long: `clause turns contract PDFs into tagged, embedded chunks and answers
a catalogue of contract questions (deal name, fees, territory, dates, ...)
against them with retrieval-augmented generation.

Typical flow:
  clause ingest contract.pdf      # partition, enrich, chunk, store, extract
  clause extract 1                # re-run extraction for document 1
  clause serve                    # HTTP upload API`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default ~/.clause/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetServices installs the services. Passing nil clears them.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	settingsService = s.Settings
	contractService = s.Contract
	pipelineService = s.Pipeline
	ingestService = s.Ingest
	extractionService = s.Extraction
	taggingService = s.Tagging
	runHistory = s.Runs
	appSettings = s.AppSettings
	closeServices = s.Close
}

// Execute runs the root command. build is called once before the first
// command that needs services.
func Execute(ctx context.Context, build Initializer) error {
	initializer = build
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("closing services: %v", err)
			}
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipInit] == "true" {
			return nil
		}
	}
	if initializer == nil {
		return nil
	}

	services, err := initializer(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	initializer = nil
	SetServices(services)
	return nil
}

// errNotConfigured reports a missing service.
func errNotConfigured(name string) error {
	return errors.New(name + " service not configured")
}
