package ports

import (
	"context"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

// NoveltyChecker is the inbound contract for the single-question request path.
type NoveltyChecker interface {
	CheckNovelty(ctx context.Context, question string) (*domain.NoveltyReport, error)
}

// EvaluationRunner drives one configuration over a question list.
type EvaluationRunner interface {
	Run(ctx context.Context, questions []domain.Question, cfg domain.Configuration) (*domain.EvaluationRun, error)
}

// ResultAnalyzer reloads persisted runs and produces cross-configuration
// comparisons.
type ResultAnalyzer interface {
	Analyze(ctx context.Context) (*domain.AnalysisReport, error)
}
