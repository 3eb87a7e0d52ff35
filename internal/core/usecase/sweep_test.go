package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

type runnerFake struct {
	seen       []domain.Configuration
	accuracies map[string]float64
	failKey    string
}

func (f *runnerFake) Run(_ context.Context, questions []domain.Question, cfg domain.Configuration) (*domain.EvaluationRun, error) {
	f.seen = append(f.seen, cfg)
	if cfg.Key() == f.failKey {
		return nil, errors.New("store unavailable")
	}
	run := domain.EvaluationRun{
		Accuracy:   f.accuracies[cfg.Key()],
		Total:      len(questions),
		Parameters: cfg,
	}
	return &run, nil
}

type queueFake struct {
	published []domain.Configuration
	err       error
}

func (f *queueFake) PublishConfiguration(_ context.Context, cfg domain.Configuration) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, cfg)
	return nil
}

func (f *queueFake) SubscribeConfigurations(context.Context, func(context.Context, domain.Configuration) error) error {
	return nil
}

func sweepGrid() SweepGrid {
	return SweepGrid{
		MaxResults:   []int{3, 10},
		HybridSearch: []bool{true},
		NeuralRatios: []float64{0.2, 0.8},
		Models:       []string{"openai/gpt-4o"},
	}
}

func TestSweepRunsFullCartesianProduct(t *testing.T) {
	runner := &runnerFake{accuracies: map[string]float64{}}
	uc := NewSweepUseCase(runner, nil)

	result, err := uc.Sweep(context.Background(), questionList("Q1"), sweepGrid())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(runner.seen) != 4 {
		t.Fatalf("expected 4 configurations evaluated, got %d", len(runner.seen))
	}
	if len(result.Runs) != 4 {
		t.Fatalf("expected 4 completed runs, got %d", len(result.Runs))
	}

	unique := make(map[string]struct{}, len(runner.seen))
	for _, cfg := range runner.seen {
		unique[cfg.Key()] = struct{}{}
	}
	if len(unique) != 4 {
		t.Fatalf("expected distinct configurations, got %d unique keys", len(unique))
	}
}

func TestSweepSelectsStrictlyBestConfiguration(t *testing.T) {
	grid := sweepGrid()
	configurations, err := grid.Configurations()
	if err != nil {
		t.Fatalf("Configurations() error = %v", err)
	}

	accuracies := map[string]float64{}
	for i, cfg := range configurations {
		accuracies[cfg.Key()] = 0.5
		if i == 2 {
			accuracies[cfg.Key()] = 0.9
		}
	}
	runner := &runnerFake{accuracies: accuracies}
	uc := NewSweepUseCase(runner, nil)

	result, err := uc.Sweep(context.Background(), questionList("Q1"), grid)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Best == nil || result.Best.Parameters.Key() != configurations[2].Key() {
		t.Fatalf("expected best configuration %s, got %+v", configurations[2].Key(), result.Best)
	}
}

func TestSweepBreaksTiesByEnumerationOrder(t *testing.T) {
	runner := &runnerFake{accuracies: map[string]float64{}}
	uc := NewSweepUseCase(runner, nil)

	result, err := uc.Sweep(context.Background(), questionList("Q1"), sweepGrid())
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if result.Best == nil || result.Best.Parameters.Key() != runner.seen[0].Key() {
		t.Fatalf("expected tie to resolve to first-enumerated configuration")
	}
}

func TestSweepContinuesPastFailedConfiguration(t *testing.T) {
	grid := sweepGrid()
	configurations, _ := grid.Configurations()
	runner := &runnerFake{accuracies: map[string]float64{}, failKey: configurations[1].Key()}
	uc := NewSweepUseCase(runner, nil)

	result, err := uc.Sweep(context.Background(), questionList("Q1"), grid)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if len(result.Runs) != 3 {
		t.Fatalf("expected 3 completed runs, got %d", len(result.Runs))
	}
	if len(result.Failed) != 1 || result.Failed[0].Parameters.Key() != configurations[1].Key() {
		t.Fatalf("expected exactly the failed configuration recorded, got %+v", result.Failed)
	}
	if len(runner.seen) != 4 {
		t.Fatalf("expected the sweep to try every configuration, got %d", len(runner.seen))
	}
}

func TestSweepGridValidationFailsFast(t *testing.T) {
	grid := sweepGrid()
	grid.NeuralRatios = []float64{0.2, 1.5}
	runner := &runnerFake{accuracies: map[string]float64{}}
	uc := NewSweepUseCase(runner, nil)

	_, err := uc.Sweep(context.Background(), questionList("Q1"), grid)
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if len(runner.seen) != 0 {
		t.Fatalf("expected no run before validation passes, got %d", len(runner.seen))
	}
}

func TestSweepGridRejectsEmptyDimension(t *testing.T) {
	grid := sweepGrid()
	grid.Models = nil
	if _, err := grid.Configurations(); !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for empty dimension, got %v", err)
	}
}

func TestPublishSendsEveryConfiguration(t *testing.T) {
	queue := &queueFake{}
	uc := NewSweepUseCase(&runnerFake{accuracies: map[string]float64{}}, nil).WithQueue(queue)

	count, err := uc.Publish(context.Background(), sweepGrid())
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if count != 4 || len(queue.published) != 4 {
		t.Fatalf("expected 4 published configurations, got count=%d published=%d", count, len(queue.published))
	}
}

func TestPublishWithoutQueueFails(t *testing.T) {
	uc := NewSweepUseCase(&runnerFake{accuracies: map[string]float64{}}, nil)
	if _, err := uc.Publish(context.Background(), sweepGrid()); err == nil {
		t.Fatalf("expected error without a configured queue")
	}
}
