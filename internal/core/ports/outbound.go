package ports

import (
	"context"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

// SearchParams carries the per-call retrieval tuning. Parameters travel with
// every call instead of living as mutable fields on a long-lived client, so
// concurrent evaluations can never observe a half-changed configuration.
type SearchParams struct {
	MaxResults  int
	Hybrid      bool
	NeuralRatio float64
}

// PaperSearcher retrieves candidate papers for a research question.
type PaperSearcher interface {
	SearchPapers(ctx context.Context, query string, params SearchParams) ([]domain.Paper, error)
}

// NoveltyJudge asks a model whether the question is already answered by the
// retrieved papers.
type NoveltyJudge interface {
	Judge(ctx context.Context, model, question string, papers []domain.Paper) (domain.Judgment, error)
}

// QuestionSource loads the labeled question set for one dataset split.
type QuestionSource interface {
	Load(ctx context.Context, split string) ([]domain.Question, error)
}

// ResultStore persists evaluation progress and completed runs.
//
// Interim checkpoints are overwritten per configuration key; final records
// are create-new (key plus generation timestamp). There is no manifest:
// LoadFinalRuns discovers records purely by the final-record key prefix, so
// the naming convention is the durable index.
type ResultStore interface {
	WriteInterim(ctx context.Context, key string, outcomes []domain.Outcome) error
	WriteFinal(ctx context.Context, key string, run domain.EvaluationRun) error
	LoadFinalRuns(ctx context.Context) ([]domain.EvaluationRun, error)
}

// SweepQueue distributes sweep configurations to evaluation workers.
type SweepQueue interface {
	PublishConfiguration(ctx context.Context, cfg domain.Configuration) error
	SubscribeConfigurations(ctx context.Context, handler func(context.Context, domain.Configuration) error) error
}
