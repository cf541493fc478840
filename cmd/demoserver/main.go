// Command demoserver serves lazy-loading fixture pages for trying out the
// screenshot service.
// Usage: go run ./cmd/demoserver [port]
// Default port: 9999
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/raysh454/pageshot/internal/demoserver"
	"github.com/raysh454/pageshot/internal/logging"
)

func main() {
	cfg := demoserver.DefaultConfig()

	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			log.Fatalf("Invalid port: %s", os.Args[1])
		}
		cfg.Port = port
	}

	fmt.Println("===========================================")
	fmt.Println("   Pageshot Demo Server")
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Printf("  http://localhost:%d/lazy   lazy-loaded images\n", cfg.Port)
	fmt.Printf("  http://localhost:%d/tall   tall page, no images\n", cfg.Port)
	fmt.Printf("  http://localhost:%d/slow   delayed response (?ms=)\n", cfg.Port)
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := demoserver.NewDemoServer(cfg, logging.NewStdoutLogger(""))
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
