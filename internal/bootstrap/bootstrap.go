package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/hasanyone/noveltycheck/internal/config"
	"github.com/hasanyone/noveltycheck/internal/core/ports"
	"github.com/hasanyone/noveltycheck/internal/core/usecase"
	"github.com/hasanyone/noveltycheck/internal/infrastructure/dataset/csvfile"
	"github.com/hasanyone/noveltycheck/internal/infrastructure/dataset/xlsxfile"
	"github.com/hasanyone/noveltycheck/internal/infrastructure/llm/openrouter"
	natsqueue "github.com/hasanyone/noveltycheck/internal/infrastructure/queue/nats"
	"github.com/hasanyone/noveltycheck/internal/infrastructure/resilience"
	resultsfs "github.com/hasanyone/noveltycheck/internal/infrastructure/results/localfs"
	resultspg "github.com/hasanyone/noveltycheck/internal/infrastructure/results/postgres"
	"github.com/hasanyone/noveltycheck/internal/infrastructure/search/exa"
)

// App is the shared object graph behind every binary. The sweep queue is
// connected on demand; api and analyze never touch NATS.
type App struct {
	Config config.Config
	Logger *slog.Logger

	Questions ports.QuestionSource
	Store     ports.ResultStore
	Searcher  ports.PaperSearcher
	Judge     ports.NoveltyJudge

	EvalUC    *usecase.EvaluationUseCase
	SweepUC   *usecase.SweepUseCase
	AnalyzeUC *usecase.AnalyzeUseCase
	CheckUC   *usecase.CheckNoveltyUseCase

	queue   *natsqueue.Queue
	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, closeStore, err := newResultStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	searchExecutor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)
	judgeExecutor := resilience.NewExecutor(resilience.DefaultPolicy(), logger)

	searcher := exa.New(
		cfg.ExaURL,
		cfg.ExaAPIKey,
		searchExecutor,
		newLimiter(cfg.SearchRatePerSec),
		logger,
	)
	judge := openrouter.New(
		cfg.OpenRouterURL,
		cfg.OpenRouterAPIKey,
		cfg.OpenRouterMaxTokens,
		judgeExecutor,
		newLimiter(cfg.JudgeRatePerSec),
		logger,
	)

	evalUC := usecase.NewEvaluationUseCase(searcher, judge, store, usecase.EvaluationOptions{
		ConcurrentLimit: cfg.ConcurrentLimit,
		CheckpointEvery: cfg.CheckpointEvery,
		CallTimeout:     time.Duration(cfg.CallTimeoutSecs) * time.Second,
	}, logger)

	sweepUC := usecase.NewSweepUseCase(evalUC, logger)
	analyzeUC := usecase.NewAnalyzeUseCase(store, usecase.AnalyzeOptions{
		ErrorSampleLimit: cfg.ErrorSampleLimit,
		Seed:             cfg.AnalysisSeed,
	}, logger)
	checkUC := usecase.NewCheckNoveltyUseCase(searcher, judge, ports.SearchParams{
		MaxResults:  cfg.DefaultMaxResults,
		Hybrid:      cfg.DefaultHybridSearch,
		NeuralRatio: cfg.DefaultNeuralRatio,
	}, cfg.DefaultModel)

	return &App{
		Config: cfg,
		Logger: logger,

		Questions: newQuestionSource(cfg.DatasetPath),
		Store:     store,
		Searcher:  searcher,
		Judge:     judge,

		EvalUC:    evalUC,
		SweepUC:   sweepUC,
		AnalyzeUC: analyzeUC,
		CheckUC:   checkUC,

		closeFn: closeStore,
	}, nil
}

// ConnectQueue joins the sweep subject and enables distributed runs. Safe to
// call once; the queue is closed with the app.
func (a *App) ConnectQueue() (ports.SweepQueue, error) {
	if a.queue != nil {
		return a.queue, nil
	}

	queue, err := natsqueue.NewWithOptions(a.Config.NATSURL, a.Config.NATSSubject, natsqueue.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultPolicy(), a.Logger),
		Logger:             a.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init sweep queue: %w", err)
	}
	a.queue = queue
	a.SweepUC.WithQueue(queue)
	return queue, nil
}

func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newResultStore(ctx context.Context, cfg config.Config) (ports.ResultStore, func(), error) {
	if cfg.ResultsBackend == "postgres" {
		db, err := resultspg.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		store := resultspg.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, func() { _ = db.Close() }, nil
	}

	store, err := resultsfs.New(cfg.ResultsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init results store: %w", err)
	}
	return store, func() {}, nil
}

func newQuestionSource(path string) ports.QuestionSource {
	if filepath.Ext(path) == ".xlsx" {
		return xlsxfile.New(path)
	}
	return csvfile.New(path)
}

func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}
