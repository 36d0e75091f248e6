package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/semmy-space/shelf/internal/cli"
)

var (
	version = "dev"
)

func main() {
	// Ctrl-C cancels in-flight requests instead of killing the process, so
	// the session still closes and the metrics file is written.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := cli.Execute(ctx, cli.Streams{}, version, os.Args[1:])
	stop()
	os.Exit(code)
}
