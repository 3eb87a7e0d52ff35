package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/core/ports"
)

// EvaluationOptions tunes batch scheduling. ConcurrentLimit doubles as the
// chunk size: the scheduler issues one chunk of that many concurrent
// evaluations and waits for the whole chunk before advancing. Decoupling the
// two would change throughput only, never correctness.
type EvaluationOptions struct {
	ConcurrentLimit int
	CheckpointEvery int
	CallTimeout     time.Duration
}

func (o EvaluationOptions) normalize() EvaluationOptions {
	out := o
	if out.ConcurrentLimit <= 0 {
		out.ConcurrentLimit = 5
	}
	if out.CheckpointEvery <= 0 {
		out.CheckpointEvery = 10
	}
	if out.CallTimeout <= 0 {
		out.CallTimeout = 60 * time.Second
	}
	return out
}

// EvaluationObserver receives scheduling events for metrics export.
// Question hooks fire from evaluation goroutines, so implementations must
// be safe for concurrent use.
type EvaluationObserver interface {
	QuestionStarted()
	QuestionEvaluated(duration time.Duration, failed bool)
	CheckpointWritten(key string, outcomes int)
	RunCompleted(key string, duration time.Duration, err error)
}

// EvaluationUseCase drives one configuration over a question list with
// bounded concurrency, failure isolation per question, and checkpointing.
type EvaluationUseCase struct {
	searcher ports.PaperSearcher
	judge    ports.NoveltyJudge
	store    ports.ResultStore
	opts     EvaluationOptions
	logger   *slog.Logger
	observer EvaluationObserver
}

func NewEvaluationUseCase(
	searcher ports.PaperSearcher,
	judge ports.NoveltyJudge,
	store ports.ResultStore,
	opts EvaluationOptions,
	logger *slog.Logger,
) *EvaluationUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvaluationUseCase{
		searcher: searcher,
		judge:    judge,
		store:    store,
		opts:     opts.normalize(),
		logger:   logger,
	}
}

// WithObserver attaches a scheduling observer. Must be called before Run.
func (uc *EvaluationUseCase) WithObserver(observer EvaluationObserver) *EvaluationUseCase {
	uc.observer = observer
	return uc
}

// questionResult is the typed outcome of a single evaluation slot: either an
// outcome or a failure reason, never both. Failures stay local to their slot.
type questionResult struct {
	outcome domain.Outcome
	err     error
}

// Run evaluates every question under cfg and persists the completed run.
//
// Collaborator failures degrade the denominator, not the process: a failed
// question is absent from the outcome list and counted in Failed. Persistence
// failures are fatal to this run because losing the ability to record results
// forfeits its purpose.
func (uc *EvaluationUseCase) Run(
	ctx context.Context,
	questions []domain.Question,
	cfg domain.Configuration,
) (*domain.EvaluationRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	key := cfg.Key()
	logger := uc.logger.With("configuration", key)
	logger.Info("evaluation_started", "questions", len(questions), "concurrent_limit", uc.opts.ConcurrentLimit)

	outcomes := make([]domain.Outcome, 0, len(questions))
	failed := 0

	limit := uc.opts.ConcurrentLimit
	for chunkStart := 0; chunkStart < len(questions); chunkStart += limit {
		if err := ctx.Err(); err != nil {
			uc.notifyRun(key, start, err)
			return nil, err
		}

		chunkEnd := chunkStart + limit
		if chunkEnd > len(questions) {
			chunkEnd = len(questions)
		}
		chunk := questions[chunkStart:chunkEnd]

		for _, result := range uc.evaluateChunk(ctx, chunk, cfg) {
			if result.err != nil {
				failed++
				logger.Warn("question_failed", "error", result.err)
				continue
			}
			outcomes = append(outcomes, result.outcome)
		}

		if len(outcomes) > 0 && len(outcomes)%uc.opts.CheckpointEvery == 0 {
			if err := uc.store.WriteInterim(ctx, key, outcomes); err != nil {
				err = fmt.Errorf("write interim checkpoint: %w", err)
				uc.notifyRun(key, start, err)
				return nil, err
			}
			logger.Info("checkpoint_written", "outcomes", len(outcomes))
			if uc.observer != nil {
				uc.observer.CheckpointWritten(key, len(outcomes))
			}
		}
	}

	run := domain.NewEvaluationRun(cfg, outcomes, failed)
	if err := uc.store.WriteFinal(ctx, key, run); err != nil {
		err = fmt.Errorf("write final results: %w", err)
		uc.notifyRun(key, start, err)
		return nil, err
	}

	logger.Info("evaluation_completed",
		"accuracy", run.Accuracy,
		"correct", run.Correct,
		"total", run.Total,
		"failed", run.Failed,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	uc.notifyRun(key, start, nil)
	return &run, nil
}

// evaluateChunk runs every question of one chunk concurrently and returns
// once all of them resolved, success or failure. Slot order within the
// returned slice follows chunk order; aggregation is order-independent.
func (uc *EvaluationUseCase) evaluateChunk(
	ctx context.Context,
	chunk []domain.Question,
	cfg domain.Configuration,
) []questionResult {
	results := make([]questionResult, len(chunk))

	var wg sync.WaitGroup
	for i, question := range chunk {
		wg.Add(1)
		go func(slot int, q domain.Question) {
			defer wg.Done()
			questionStart := time.Now()
			if uc.observer != nil {
				uc.observer.QuestionStarted()
			}
			outcome, err := uc.evaluateQuestion(ctx, q, cfg)
			results[slot] = questionResult{outcome: outcome, err: err}
			if uc.observer != nil {
				uc.observer.QuestionEvaluated(time.Since(questionStart), err != nil)
			}
		}(i, question)
	}
	wg.Wait()

	return results
}

// evaluateQuestion performs the search call and the judgment call for one
// question, each under its own timeout, and normalizes the verdict. Errors
// returned here never abort the chunk; the caller records them as a missing
// outcome.
func (uc *EvaluationUseCase) evaluateQuestion(
	ctx context.Context,
	question domain.Question,
	cfg domain.Configuration,
) (domain.Outcome, error) {
	searchCtx, cancelSearch := context.WithTimeout(ctx, uc.opts.CallTimeout)
	defer cancelSearch()

	papers, err := uc.searcher.SearchPapers(searchCtx, question.Text, ports.SearchParams{
		MaxResults:  cfg.MaxResults,
		Hybrid:      cfg.HybridSearch,
		NeuralRatio: cfg.NeuralRatio,
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("search papers for %q: %w", truncate(question.Text, 80), err)
	}

	judgeCtx, cancelJudge := context.WithTimeout(ctx, uc.opts.CallTimeout)
	defer cancelJudge()

	judgment, err := uc.judge.Judge(judgeCtx, cfg.Model, question.Text, papers)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("judge novelty for %q: %w", truncate(question.Text, 80), err)
	}

	if !domain.IsWellFormedLabel(judgment.Novelty) {
		// Normalization absorbs this into "no"; keep the raw value visible.
		uc.logger.Warn("malformed_judge_label", "label", judgment.Novelty, "question", truncate(question.Text, 80))
	}
	predicted := domain.NormalizeLabel(judgment.Novelty)

	if papers == nil {
		papers = []domain.Paper{}
	}
	return domain.Outcome{
		Question:        question.Text,
		TrueAnswer:      question.TrueAnswer,
		PredictedAnswer: predicted,
		IsCorrect:       predicted == question.TrueAnswer,
		SearchResults:   papers,
		FullExplanation: judgment.Explanation,
	}, nil
}

func (uc *EvaluationUseCase) notifyRun(key string, start time.Time, err error) {
	if uc.observer != nil {
		uc.observer.RunCompleted(key, time.Since(start), err)
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
