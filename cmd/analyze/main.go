package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/hasanyone/noveltycheck/internal/bootstrap"
	"github.com/hasanyone/noveltycheck/internal/config"
	"github.com/hasanyone/noveltycheck/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("analyze", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	report, err := app.AnalyzeUC.Analyze(ctx)
	if err != nil {
		logger.Error("analysis_failed", "error", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		logger.Error("encode_report_failed", "error", err)
		os.Exit(1)
	}
}
