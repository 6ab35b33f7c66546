package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sopgen/internal/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, formatError(err))
		}
		os.Exit(services.ExitCode(err))
	}
}

// formatError renders err as "Error: <stage>: <reason>" for pipeline
// failures and "Error: <reason>" otherwise.
func formatError(err error) string {
	return "Error: " + err.Error()
}
