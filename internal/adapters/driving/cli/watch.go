package cli

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/clause/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest PDFs as they arrive in the input directory",
	Long: `Watches the input directory and runs the full flow for every PDF that
appears in it. A file is picked up once it has stopped changing for the
debounce window (watch.debounce). The directory is also swept periodically
(watch.rescan) for PDFs that have no stored chunks yet.

Stop with Ctrl-C; the PDF being processed is finished first.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if contractService == nil {
		return errNotConfigured("contract")
	}
	if appSettings == nil {
		return errors.New("settings not loaded")
	}

	w := newWatcher()
	w.OnResult(func(path string, result *domain.UploadResult, err error) {
		if err != nil {
			printFailure(cmd, "✗ %s: %v", filepath.Base(path), err)
			return
		}
		printUploadResult(cmd, filepath.Base(path), result)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", appSettings.Directories.InputDir)
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
