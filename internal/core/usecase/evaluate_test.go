package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/core/ports"
)

type searcherFake struct {
	mu        sync.Mutex
	calls     int
	inFlight  int32
	maxSeen   int32
	params    ports.SearchParams
	failQuery string
}

func (f *searcherFake) SearchPapers(_ context.Context, query string, params ports.SearchParams) ([]domain.Paper, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		seen := atomic.LoadInt32(&f.maxSeen)
		if current <= seen || atomic.CompareAndSwapInt32(&f.maxSeen, seen, current) {
			break
		}
	}

	f.mu.Lock()
	f.calls++
	f.params = params
	f.mu.Unlock()

	if f.failQuery != "" && query == f.failQuery {
		return nil, errors.New("search quota exceeded")
	}
	return []domain.Paper{{Title: "paper for " + query, URL: "https://example.org/paper"}}, nil
}

type judgeFake struct {
	mu       sync.Mutex
	answers  map[string]string
	failFor  string
	lastUsed string
}

func (f *judgeFake) Judge(_ context.Context, model, question string, _ []domain.Paper) (domain.Judgment, error) {
	f.mu.Lock()
	f.lastUsed = model
	answer, ok := f.answers[question]
	f.mu.Unlock()

	if question == f.failFor {
		return domain.Judgment{}, errors.New("judge unavailable")
	}
	if !ok {
		answer = "NO"
	}
	return domain.Judgment{Novelty: answer, Explanation: "because"}, nil
}

type storeFake struct {
	mu              sync.Mutex
	interimKeys     []string
	interimCounts   []int
	finalKey        string
	finalRun        *domain.EvaluationRun
	interimErr      error
	finalErr        error
	loadedFinalRuns []domain.EvaluationRun
}

func (f *storeFake) WriteInterim(_ context.Context, key string, outcomes []domain.Outcome) error {
	if f.interimErr != nil {
		return f.interimErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interimKeys = append(f.interimKeys, key)
	f.interimCounts = append(f.interimCounts, len(outcomes))
	return nil
}

func (f *storeFake) WriteFinal(_ context.Context, key string, run domain.EvaluationRun) error {
	if f.finalErr != nil {
		return f.finalErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalKey = key
	f.finalRun = &run
	return nil
}

func (f *storeFake) LoadFinalRuns(context.Context) ([]domain.EvaluationRun, error) {
	return f.loadedFinalRuns, nil
}

func validConfig() domain.Configuration {
	return domain.Configuration{MaxResults: 3, HybridSearch: true, NeuralRatio: 0.5, Model: "openai/gpt-4o"}
}

func questionList(texts ...string) []domain.Question {
	questions := make([]domain.Question, 0, len(texts))
	for _, text := range texts {
		questions = append(questions, domain.Question{Text: text, TrueAnswer: domain.LabelYes})
	}
	return questions
}

func TestRunComputesAccuracyFromOutcomes(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{answers: map[string]string{"Q1": "YES", "Q2": "NO"}}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 5, CheckpointEvery: 10}, nil)

	questions := []domain.Question{
		{Text: "Q1", TrueAnswer: domain.LabelYes},
		{Text: "Q2", TrueAnswer: domain.LabelNo},
	}
	run, err := uc.Run(context.Background(), questions, validConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Accuracy != 1.0 || run.Correct != 2 || run.Total != 2 {
		t.Fatalf("expected accuracy=1.0 correct=2 total=2, got accuracy=%g correct=%d total=%d", run.Accuracy, run.Correct, run.Total)
	}
	if run.Failed != 0 {
		t.Fatalf("expected no failed questions, got %d", run.Failed)
	}
	if judge.lastUsed != "openai/gpt-4o" {
		t.Fatalf("expected configured model to reach the judge, got %q", judge.lastUsed)
	}
}

func TestRunExcludesFailedJudgeCallFromDenominator(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{answers: map[string]string{"Q1": "YES"}, failFor: "Q2"}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 5, CheckpointEvery: 10}, nil)

	questions := []domain.Question{
		{Text: "Q1", TrueAnswer: domain.LabelYes},
		{Text: "Q2", TrueAnswer: domain.LabelNo},
	}
	run, err := uc.Run(context.Background(), questions, validConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Total != 1 || run.Accuracy != 1.0 {
		t.Fatalf("expected total=1 accuracy=1.0, got total=%d accuracy=%g", run.Total, run.Accuracy)
	}
	if run.Failed != 1 {
		t.Fatalf("expected failed=1, got %d", run.Failed)
	}
}

func TestRunIsolatesSearchFailureToItsSlot(t *testing.T) {
	searcher := &searcherFake{failQuery: "Q3"}
	judge := &judgeFake{}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 5, CheckpointEvery: 100}, nil)

	questions := questionList("Q1", "Q2", "Q3", "Q4", "Q5", "Q6", "Q7", "Q8", "Q9", "Q10")
	run, err := uc.Run(context.Background(), questions, validConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if run.Total != 9 {
		t.Fatalf("expected 9 outcomes from a 10-question batch with one failure, got %d", run.Total)
	}
	if run.Failed != 1 {
		t.Fatalf("expected 1 failed question, got %d", run.Failed)
	}
	for _, outcome := range run.DetailedResults {
		if outcome.Question == "Q3" {
			t.Fatalf("failed question must not appear in detailed results")
		}
	}
}

func TestRunBoundsConcurrencyAndCoversShortFinalChunk(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 3, CheckpointEvery: 100}, nil)

	run, err := uc.Run(context.Background(), questionList("Q1", "Q2", "Q3", "Q4", "Q5", "Q6", "Q7"), validConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if searcher.calls != 7 {
		t.Fatalf("expected every question searched exactly once, got %d calls", searcher.calls)
	}
	if run.Total != 7 {
		t.Fatalf("expected 7 outcomes, got %d", run.Total)
	}
	if max := atomic.LoadInt32(&searcher.maxSeen); max > 3 {
		t.Fatalf("expected at most 3 concurrent searches, observed %d", max)
	}
}

func TestRunCheckpointsAtBatchMultiples(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 2, CheckpointEvery: 4}, nil)

	_, err := uc.Run(context.Background(), questionList("Q1", "Q2", "Q3", "Q4", "Q5", "Q6", "Q7", "Q8", "Q9", "Q10"), validConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.interimCounts) != 2 {
		t.Fatalf("expected 2 interim checkpoints, got %d (%v)", len(store.interimCounts), store.interimCounts)
	}
	if store.interimCounts[0] != 4 || store.interimCounts[1] != 8 {
		t.Fatalf("expected checkpoints at 4 and 8 outcomes, got %v", store.interimCounts)
	}
	for _, key := range store.interimKeys {
		if key != validConfig().Key() {
			t.Fatalf("checkpoints must reuse the configuration key, got %q", key)
		}
	}
}

func TestRunAbortsOnCheckpointFailure(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{}
	store := &storeFake{interimErr: errors.New("disk full")}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 2, CheckpointEvery: 2}, nil)

	_, err := uc.Run(context.Background(), questionList("Q1", "Q2", "Q3", "Q4"), validConfig())
	if err == nil {
		t.Fatalf("expected persistence failure to abort the run")
	}
	if !strings.Contains(err.Error(), "interim checkpoint") {
		t.Fatalf("expected checkpoint error, got %v", err)
	}
}

func TestRunAbortsOnFinalWriteFailure(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{}
	store := &storeFake{finalErr: errors.New("disk full")}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 2, CheckpointEvery: 100}, nil)

	_, err := uc.Run(context.Background(), questionList("Q1"), validConfig())
	if err == nil {
		t.Fatalf("expected final write failure to abort the run")
	}
}

func TestRunRejectsInvalidConfigurationBeforeAnyCall(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{}, nil)

	cfg := validConfig()
	cfg.NeuralRatio = 1.5
	_, err := uc.Run(context.Background(), questionList("Q1"), cfg)
	if !domain.IsKind(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if searcher.calls != 0 {
		t.Fatalf("expected no collaborator calls for invalid configuration, got %d", searcher.calls)
	}
}

func TestRunPassesPerCallSearchParameters(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 1, CheckpointEvery: 100}, nil)

	cfg := domain.Configuration{MaxResults: 7, HybridSearch: true, NeuralRatio: 0.25, Model: "m"}
	if _, err := uc.Run(context.Background(), questionList("Q1"), cfg); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if searcher.params.MaxResults != 7 || !searcher.params.Hybrid || searcher.params.NeuralRatio != 0.25 {
		t.Fatalf("expected configuration parameters on the search call, got %+v", searcher.params)
	}
}

func TestRunWritesFinalRecordUnderConfigurationKey(t *testing.T) {
	searcher := &searcherFake{}
	judge := &judgeFake{answers: map[string]string{"Q1": "yes"}}
	store := &storeFake{}
	uc := NewEvaluationUseCase(searcher, judge, store, EvaluationOptions{ConcurrentLimit: 1, CheckpointEvery: 100}, nil)

	run, err := uc.Run(context.Background(), questionList("Q1"), validConfig())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if store.finalKey != validConfig().Key() {
		t.Fatalf("expected final record key %q, got %q", validConfig().Key(), store.finalKey)
	}
	if store.finalRun == nil || store.finalRun.Total != run.Total || store.finalRun.Accuracy != run.Accuracy {
		t.Fatalf("expected persisted run to match returned run")
	}
}
