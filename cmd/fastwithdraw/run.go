package main

import (
	"context"
	"fmt"
	"io"
	"os"
)

type fxApp interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Done() <-chan os.Signal
}

// run blocks until ctx is cancelled or the app asks to shut down and returns the process exit code.
func run(ctx context.Context, app fxApp, errOut io.Writer) int {
	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(errOut, "Failed to start server: %v\n", err)
		return 1
	}

	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	if err := app.Stop(context.Background()); err != nil {
		fmt.Fprintf(errOut, "failed to stop server: %v\n", err)
		return 1
	}
	return 0
}
