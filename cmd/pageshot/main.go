// Command pageshot runs the screenshot HTTP service.
// Usage: go run ./cmd/pageshot
// Configuration comes from the environment and an optional .env file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/pageshot/internal/app"
	"github.com/raysh454/pageshot/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pageshot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Close()

	a, err := app.NewApplication(cfg, logger, nil)
	if err != nil {
		logger.Error("startup failed", logging.Err(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("server stopped with error", logging.Err(err))
		return err
	}
	return nil
}
