package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/duckmesh/duckask/internal/cli/duckask"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := duckask.Run(ctx, os.Args[1:], duckask.Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	stop()
	os.Exit(code)
}
