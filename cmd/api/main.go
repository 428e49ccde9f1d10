package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/loadhaul/platform/services/payments-service/internal/app/bootstrap"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to config file")
	flag.Parse()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, *configPath)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	if err := runtime.RunAPI(ctx); err != nil {
		slog.Error("runtime exited", "error", err)
		os.Exit(1)
	}
}
