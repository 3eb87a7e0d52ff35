package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hasanyone/noveltycheck/internal/bootstrap"
	"github.com/hasanyone/noveltycheck/internal/config"
	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/observability/logging"
	"github.com/hasanyone/noveltycheck/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	evalMetrics := metrics.NewEvaluationMetrics("worker")
	app.EvalUC.WithObserver(evalMetrics)

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: evalMetrics.Handler(),
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	// The dataset is fixed for the life of the worker; every queued
	// configuration is evaluated against the same split.
	questions, err := app.Questions.Load(ctx, cfg.DatasetSplit)
	if err != nil {
		logger.Error("load_questions_failed", "split", cfg.DatasetSplit, "error", err)
		os.Exit(1)
	}

	queue, err := app.ConnectQueue()
	if err != nil {
		logger.Error("connect_queue_failed", "error", err)
		os.Exit(1)
	}

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "questions", len(questions))
	err = queue.SubscribeConfigurations(ctx, func(handlerCtx context.Context, configuration domain.Configuration) error {
		_, err := app.EvalUC.Run(handlerCtx, questions, configuration)
		return err
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
