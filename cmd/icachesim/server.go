package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/icache-sim/icache-sim/api"
	"github.com/icache-sim/icache-sim/config"
)

// runAPIServer starts the HTTP API server and blocks until it receives an
// interrupt or termination signal, then shuts it down gracefully.
func runAPIServer(port int, cfg *config.Config, version, commit, date string) {
	server := api.NewServer(port, cfg)

	fmt.Printf("icache-sim API server %s (commit %s, built %s)\n", version, commit, date)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
			}
		})
	}

	select {
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "API server error: %v\n", err)
		shutdown()
		os.Exit(1)
	case <-sigCh:
		fmt.Println("Shutting down API server...")
		shutdown()
	}
}
