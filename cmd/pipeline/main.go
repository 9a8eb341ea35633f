package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/wordbook/internal/app"
	"github.com/markdave123-py/wordbook/internal/config"
)

func main() {
	stage := flag.String("stage", app.StageAll, "pipeline stage: format, normalize or all")
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	log := app.NewLogger(cfg.Log, nil)

	application, err := app.NewApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}

	rep, err := application.RunPipeline(ctx, *stage)
	application.Close()
	if err != nil {
		log.Error("pipeline failed", slog.String("stage", *stage), slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("pipeline finished",
		slog.String("stage", *stage),
		slog.Int("formatted", len(rep.Formatted)),
		slog.Int("buckets", len(rep.Runs)),
		slog.Int("failed", rep.Failed()))
	if rep.Failed() > 0 {
		os.Exit(2)
	}
}
