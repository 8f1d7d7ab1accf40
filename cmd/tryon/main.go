// File: cmd/tryon/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/outfitlab/tryon-cli/cmd"
	"github.com/outfitlab/tryon-cli/internal/observability"
)

func main() {
	// Interrupts cancel the command context so in-flight browser work can
	// tear down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
