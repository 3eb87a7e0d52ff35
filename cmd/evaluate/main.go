package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/hasanyone/noveltycheck/internal/bootstrap"
	"github.com/hasanyone/noveltycheck/internal/config"
	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/core/usecase"
	"github.com/hasanyone/noveltycheck/internal/observability/logging"
)

func main() {
	cfg := config.Load()

	split := flag.String("split", cfg.DatasetSplit, "dataset split to evaluate")
	planPath := flag.String("plan", "", "sweep plan YAML; empty runs the single default configuration")
	publish := flag.Bool("publish", false, "publish sweep configurations to the queue instead of running locally")
	flag.Parse()

	logger := logging.NewJSONLogger("evaluate", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	grid := defaultGrid(cfg)
	if *planPath != "" {
		grid, err = config.LoadSweepPlan(*planPath)
		if err != nil {
			logger.Error("load_sweep_plan_failed", "path", *planPath, "error", err)
			os.Exit(1)
		}
	}

	if *publish {
		if _, err := app.ConnectQueue(); err != nil {
			logger.Error("connect_queue_failed", "error", err)
			os.Exit(1)
		}
		published, err := app.SweepUC.Publish(ctx, grid)
		if err != nil {
			logger.Error("publish_failed", "published", published, "error", err)
			os.Exit(1)
		}
		logger.Info("sweep_queued", "configurations", published)
		return
	}

	questions, err := app.Questions.Load(ctx, *split)
	if err != nil {
		logger.Error("load_questions_failed", "split", *split, "error", err)
		os.Exit(1)
	}

	result, err := app.SweepUC.Sweep(ctx, questions, grid)
	if err != nil {
		logger.Error("sweep_failed", "error", err)
		os.Exit(1)
	}
	if len(result.Failed) > 0 {
		for _, failed := range result.Failed {
			logger.Warn("configuration_incomplete", "configuration", failed.Parameters.Key(), "error", failed.Err)
		}
	}
	if result.Best == nil {
		logger.Error("no_configuration_completed")
		os.Exit(1)
	}
}

// defaultGrid degenerates the sweep to the single configured point.
func defaultGrid(cfg config.Config) usecase.SweepGrid {
	point := domain.Configuration{
		MaxResults:   cfg.DefaultMaxResults,
		HybridSearch: cfg.DefaultHybridSearch,
		NeuralRatio:  cfg.DefaultNeuralRatio,
		Model:        cfg.DefaultModel,
	}
	return usecase.SweepGrid{
		MaxResults:   []int{point.MaxResults},
		HybridSearch: []bool{point.HybridSearch},
		NeuralRatios: []float64{point.NeuralRatio},
		Models:       []string{point.Model},
	}
}
