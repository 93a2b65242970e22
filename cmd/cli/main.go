package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/docscrib/docscrib-cli/internal/buildinfo"
	"github.com/docscrib/docscrib-cli/internal/client/cli"
	"github.com/docscrib/docscrib-cli/internal/client/config"
	"github.com/docscrib/docscrib-cli/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}
	// Sync on a terminal stderr may fail with EINVAL; nothing to do about it.
	defer func() { _ = logging.Sync(logger) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "shell stopped", "error", err)
	}

}
