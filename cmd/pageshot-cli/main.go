// Command pageshot-cli captures screenshots through a running pageshot
// service and writes them to disk.
// Usage: pageshot-cli [-server URL] [-device desktop|mobile|both] [-wait ms] [-out DIR] URL...
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/pageshot/internal/cli"
	"github.com/raysh454/pageshot/internal/client"
	"github.com/raysh454/pageshot/internal/logging"
)

func main() {
	args, err := cli.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "pageshot-cli: %v\n", err)
		fmt.Fprintln(os.Stderr, "usage: pageshot-cli [-server URL] [-device desktop|mobile|both] [-wait ms] [-out DIR] [-concurrency N] URL...")
		os.Exit(2)
	}

	logger, err := logging.New(logging.Options{Component: "cli", Console: true, ConsoleWriter: os.Stderr})
	if err != nil {
		fmt.Fprintf(os.Stderr, "pageshot-cli: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	c, err := client.New(client.Options{BaseURL: args.Server, WaitTime: args.WaitTime, Logger: logger})
	if err != nil {
		logger.Error("invalid server URL", logging.Err(err))
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := cli.Run(ctx, args, c, logger)
	for _, r := range results {
		fmt.Printf("%s\t%s\t%s\n", r.URL, r.Device, r.Path)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "pageshot-cli: %v\n", err)
		stop()
		logger.Close()
		os.Exit(1)
	}
}
