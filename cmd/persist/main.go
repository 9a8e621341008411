// Package main provides the CLI for the persist catchment model.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/incawqmodels/persist/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
