package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/core/ports"
)

// SweepGrid holds the candidate values per configuration dimension. The
// Cartesian product of all four dimensions is the evaluated parameter space.
type SweepGrid struct {
	MaxResults   []int     `yaml:"max_results"`
	HybridSearch []bool    `yaml:"hybrid_search"`
	NeuralRatios []float64 `yaml:"neural_ratios"`
	Models       []string  `yaml:"models"`
}

// Configurations enumerates the full Cartesian product in deterministic
// order and validates every point before anything runs. An invalid value
// anywhere fails the whole sweep up front, before any collaborator call.
func (g SweepGrid) Configurations() ([]domain.Configuration, error) {
	if len(g.MaxResults) == 0 || len(g.HybridSearch) == 0 || len(g.NeuralRatios) == 0 || len(g.Models) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidConfig, "enumerate sweep grid",
			fmt.Errorf("every dimension needs at least one value: max_results=%d hybrid=%d ratios=%d models=%d",
				len(g.MaxResults), len(g.HybridSearch), len(g.NeuralRatios), len(g.Models)))
	}

	configurations := make([]domain.Configuration, 0, len(g.Models)*len(g.MaxResults)*len(g.HybridSearch)*len(g.NeuralRatios))
	for _, model := range g.Models {
		for _, maxResults := range g.MaxResults {
			for _, hybrid := range g.HybridSearch {
				for _, ratio := range g.NeuralRatios {
					cfg := domain.Configuration{
						MaxResults:   maxResults,
						HybridSearch: hybrid,
						NeuralRatio:  ratio,
						Model:        model,
					}
					if err := cfg.Validate(); err != nil {
						return nil, err
					}
					configurations = append(configurations, cfg)
				}
			}
		}
	}
	return configurations, nil
}

// FailedConfiguration records a configuration whose run could not complete.
// It does not block the remaining configurations.
type FailedConfiguration struct {
	Parameters domain.Configuration
	Err        error
}

// SweepResult is the outcome of one full parameter sweep. Best points at the
// run with maximum accuracy; ties resolve to the first-enumerated
// configuration, an arbitrary but deterministic choice.
type SweepResult struct {
	Runs   []domain.EvaluationRun
	Failed []FailedConfiguration
	Best   *domain.EvaluationRun
}

// SweepUseCase runs the batch scheduler once per configuration, locally or
// by fanning configurations out over a queue.
type SweepUseCase struct {
	runner ports.EvaluationRunner
	queue  ports.SweepQueue
	logger *slog.Logger
}

func NewSweepUseCase(runner ports.EvaluationRunner, logger *slog.Logger) *SweepUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepUseCase{runner: runner, logger: logger}
}

// WithQueue enables Publish for distributed sweeps.
func (uc *SweepUseCase) WithQueue(queue ports.SweepQueue) *SweepUseCase {
	uc.queue = queue
	return uc
}

// Sweep evaluates every configuration of the grid against the same question
// list. Configurations are independent: a failed run is recorded and the
// sweep moves on. Only context cancellation stops the loop early.
func (uc *SweepUseCase) Sweep(
	ctx context.Context,
	questions []domain.Question,
	grid SweepGrid,
) (*SweepResult, error) {
	configurations, err := grid.Configurations()
	if err != nil {
		return nil, err
	}
	uc.logger.Info("sweep_started", "configurations", len(configurations), "questions", len(questions))

	result := &SweepResult{}
	for _, cfg := range configurations {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		run, err := uc.runner.Run(ctx, questions, cfg)
		if err != nil {
			uc.logger.Error("configuration_failed", "configuration", cfg.Key(), "error", err)
			result.Failed = append(result.Failed, FailedConfiguration{Parameters: cfg, Err: err})
			continue
		}
		result.Runs = append(result.Runs, *run)
	}

	result.Best = bestRun(result.Runs)
	if result.Best != nil {
		uc.logger.Info("sweep_completed",
			"completed", len(result.Runs),
			"failed", len(result.Failed),
			"best_configuration", result.Best.Parameters.Key(),
			"best_accuracy", result.Best.Accuracy,
		)
	}
	return result, nil
}

// Publish enumerates the grid and hands every configuration to the sweep
// queue instead of running it locally.
func (uc *SweepUseCase) Publish(ctx context.Context, grid SweepGrid) (int, error) {
	if uc.queue == nil {
		return 0, fmt.Errorf("publish sweep: no queue configured")
	}
	configurations, err := grid.Configurations()
	if err != nil {
		return 0, err
	}
	for i, cfg := range configurations {
		if err := uc.queue.PublishConfiguration(ctx, cfg); err != nil {
			return i, fmt.Errorf("publish configuration %s: %w", cfg.Key(), err)
		}
	}
	uc.logger.Info("sweep_published", "configurations", len(configurations))
	return len(configurations), nil
}

func bestRun(runs []domain.EvaluationRun) *domain.EvaluationRun {
	var best *domain.EvaluationRun
	for i := range runs {
		if best == nil || runs[i].Accuracy > best.Accuracy {
			best = &runs[i]
		}
	}
	return best
}
