// Package main is the entry point for the bx24report CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bx24report/internal/cli"
	"bx24report/internal/commands" // registers all commands via init()
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Clients are acquired through the loader: host credentials, then the
	// SDK resource, then the mock in development mode
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, cli.LoaderFactory(os.Stderr))

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
