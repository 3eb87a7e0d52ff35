package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration is one point of the evaluated parameter space. It is
// immutable for the duration of a run and doubles as the grouping key for
// persisted results.
type Configuration struct {
	MaxResults   int     `json:"max_results" yaml:"max_results"`
	HybridSearch bool    `json:"hybrid_search" yaml:"hybrid_search"`
	NeuralRatio  float64 `json:"neural_ratio" yaml:"neural_ratio"`
	Model        string  `json:"model" yaml:"model"`
}

func (c Configuration) Validate() error {
	if c.MaxResults <= 0 {
		return WrapError(ErrInvalidConfig, "validate configuration", fmt.Errorf("max_results must be positive, got %d", c.MaxResults))
	}
	if c.NeuralRatio < 0 || c.NeuralRatio > 1 {
		return WrapError(ErrInvalidConfig, "validate configuration", fmt.Errorf("neural_ratio must be in [0,1], got %g", c.NeuralRatio))
	}
	if strings.TrimSpace(c.Model) == "" {
		return WrapError(ErrInvalidConfig, "validate configuration", errors.New("model must not be empty"))
	}
	return nil
}

// Key renders the configuration as a filesystem-safe string used to address
// checkpoints and final records. Model identifiers may contain "/" which is
// not allowed in filenames.
func (c Configuration) Key() string {
	model := strings.ReplaceAll(c.Model, "/", "_")
	return fmt.Sprintf("%d_%t_%g_%s", c.MaxResults, c.HybridSearch, c.NeuralRatio, model)
}

// Outcome is the recorded result of evaluating one question under one
// configuration. A question whose evaluation failed has no Outcome at all.
type Outcome struct {
	Question        string  `json:"question"`
	TrueAnswer      Label   `json:"true_answer"`
	PredictedAnswer Label   `json:"predicted_answer"`
	IsCorrect       bool    `json:"is_correct"`
	SearchResults   []Paper `json:"search_results"`
	FullExplanation string  `json:"full_explanation"`
}

// EvaluationRun aggregates the outcomes of one configuration over one
// dataset split. Failed holds the number of questions excluded from the
// accuracy denominator so a full-looking accuracy over a shrunken
// denominator is visible as such.
type EvaluationRun struct {
	Accuracy        float64       `json:"accuracy"`
	Correct         int           `json:"correct"`
	Total           int           `json:"total"`
	Failed          int           `json:"failed"`
	Parameters      Configuration `json:"parameters"`
	DetailedResults []Outcome     `json:"detailed_results"`
}

// NewEvaluationRun derives the aggregate counters from the outcome list.
// Accuracy is defined as 0 when no outcome exists.
func NewEvaluationRun(cfg Configuration, outcomes []Outcome, failed int) EvaluationRun {
	correct := 0
	for _, outcome := range outcomes {
		if outcome.IsCorrect {
			correct++
		}
	}
	total := len(outcomes)
	accuracy := 0.0
	if total > 0 {
		accuracy = float64(correct) / float64(total)
	}
	return EvaluationRun{
		Accuracy:        accuracy,
		Correct:         correct,
		Total:           total,
		Failed:          failed,
		Parameters:      cfg,
		DetailedResults: outcomes,
	}
}
