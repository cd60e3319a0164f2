package cli

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/clause/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/clause/internal/adapters/driving/watch"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP upload API",
	Long: `Serves the contract API:

  GET  /                          service banner
  POST /upload                    multipart PDF in the "file" field
  GET  /health                    liveness
  GET  /variables                 extraction catalogue
  GET  /documents                 stored documents
  POST /documents/:id/extract     answer catalogue variables
  GET  /documents/:id/query/:var  answer one variable with context
  POST /documents/:id/embeddings  backfill missing embeddings
  POST /tag                       rule-tag free text
  GET  /runs                      recent pipeline runs

With --watch the input directory is watched at the same time.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "also ingest PDFs dropped into the input directory")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if contractService == nil {
		return errNotConfigured("contract")
	}
	if appSettings == nil {
		return errors.New("settings not loaded")
	}

	cfg := appSettings.Server
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	server, err := httpapi.NewServer(cfg, httpapi.Ports{
		Contract:   contractService,
		Extraction: extractionService,
		Ingest:     ingestService,
		Tagging:    taggingService,
		Runs:       runHistory,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if serveWatch {
		w := newWatcher()
		g.Go(func() error {
			if err := w.Start(gctx); err != nil && !errors.Is(err, gctx.Err()) {
				return err
			}
			return nil
		})
	}

	cmd.Printf("Serving on %s\n", server.Addr())
	return g.Wait()
}

func newWatcher() *watch.Watcher {
	return watch.New(watch.Config{
		Dir:      appSettings.Directories.InputDir,
		Debounce: appSettings.Watch.Debounce.Std(),
		Rescan:   appSettings.Watch.Rescan.Std(),
	}, contractService, ingestService)
}
