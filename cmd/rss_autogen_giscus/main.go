package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pauljones0/rss-autogen-giscus/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		slog.Error("Sync failed", "error", err)
		os.Exit(1)
	}
}
