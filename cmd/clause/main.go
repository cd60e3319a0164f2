// Command clause processes contract PDFs into tagged, embedded chunks and
// extracts contract variables from them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/clause/internal/adapters/driving/cli"
	"github.com/custodia-labs/clause/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	err := cli.Execute(ctx, buildServices)
	stop()
	if err != nil {
		logger.Debug("command failed: %v", err)
		os.Exit(1)
	}
}
