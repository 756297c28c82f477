package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	apperrors "github.com/dpshade/prompt-composer/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	shutdown()
	if err != nil {
		handler := apperrors.NewCLIErrorHandler(verbose, nil)
		fmt.Fprintln(os.Stderr, handler.FormatError(err))
		os.Exit(1)
	}
}
