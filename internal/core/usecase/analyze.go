package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
	"github.com/hasanyone/noveltycheck/internal/core/ports"
)

// AnalyzeOptions tunes the aggregation pass.
type AnalyzeOptions struct {
	// ErrorSampleLimit bounds the random misclassification sample per
	// (true, predicted) group.
	ErrorSampleLimit int
	// Seed makes the error sampling reproducible. Zero means seed 1.
	Seed int64
}

func (o AnalyzeOptions) normalize() AnalyzeOptions {
	out := o
	if out.ErrorSampleLimit <= 0 {
		out.ErrorSampleLimit = 5
	}
	if out.Seed == 0 {
		out.Seed = 1
	}
	return out
}

// AnalyzeUseCase reloads every persisted final run and reduces it into
// cross-configuration comparisons.
type AnalyzeUseCase struct {
	store  ports.ResultStore
	opts   AnalyzeOptions
	logger *slog.Logger
}

func NewAnalyzeUseCase(store ports.ResultStore, opts AnalyzeOptions, logger *slog.Logger) *AnalyzeUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalyzeUseCase{store: store, opts: opts.normalize(), logger: logger}
}

// Analyze flattens all persisted runs and computes the full report.
func (uc *AnalyzeUseCase) Analyze(ctx context.Context) (*domain.AnalysisReport, error) {
	runs, err := uc.store.LoadFinalRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load final runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, domain.WrapError(domain.ErrRecordNotFound, "analyze results", fmt.Errorf("no final evaluation records found"))
	}

	rows := Flatten(runs)
	report, err := BuildReport(rows, uc.opts)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("analysis_completed", "runs", len(runs), "rows", report.Rows, "overall_accuracy", report.OverallAccuracy)
	return report, nil
}

// Flatten joins every detailed result row with its parent run's accuracy and
// parameters. This flattening is the sole ingestion path from storage into
// the aggregation below.
func Flatten(runs []domain.EvaluationRun) []domain.FlatResult {
	var rows []domain.FlatResult
	for _, run := range runs {
		for _, detail := range run.DetailedResults {
			rows = append(rows, domain.FlatResult{
				Accuracy:        run.Accuracy,
				Parameters:      run.Parameters,
				Question:        detail.Question,
				TrueAnswer:      detail.TrueAnswer,
				PredictedAnswer: detail.PredictedAnswer,
				IsCorrect:       detail.IsCorrect,
			})
		}
	}
	return rows
}

// BuildReport reduces flattened rows into the analysis report. It is a pure
// function of its inputs: same rows and options, same report.
func BuildReport(rows []domain.FlatResult, opts AnalyzeOptions) (*domain.AnalysisReport, error) {
	opts = opts.normalize()
	if len(rows) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build report", fmt.Errorf("no rows to analyze"))
	}

	perConfig, err := metricsPerConfiguration(rows)
	if err != nil {
		return nil, err
	}

	correct := 0
	for _, row := range rows {
		if row.IsCorrect {
			correct++
		}
	}

	report := &domain.AnalysisReport{
		Rows:             len(rows),
		OverallAccuracy:  float64(correct) / float64(len(rows)),
		ParameterImpacts: parameterImpacts(rows),
		PerConfiguration: perConfig,
		Interactions:     interactionTables(rows),
		ErrorGroups:      errorGroups(rows, opts.ErrorSampleLimit, rand.New(rand.NewSource(opts.Seed))),
	}
	if best := bestMetrics(perConfig); best != nil {
		report.Best = best
	}
	return report, nil
}

// paramKeyFuncs renders each configuration dimension as a grouping value.
var paramKeyFuncs = map[string]func(domain.Configuration) string{
	"max_results":   func(c domain.Configuration) string { return strconv.Itoa(c.MaxResults) },
	"hybrid_search": func(c domain.Configuration) string { return strconv.FormatBool(c.HybridSearch) },
	"neural_ratio":  func(c domain.Configuration) string { return strconv.FormatFloat(c.NeuralRatio, 'g', -1, 64) },
	"model":         func(c domain.Configuration) string { return c.Model },
}

// parameterImpacts estimates each parameter's marginal effect: mean, sample
// standard deviation and count of the run-level accuracy column grouped by
// each distinct value of each parameter independently.
func parameterImpacts(rows []domain.FlatResult) map[string]map[string]domain.ParameterImpact {
	impacts := make(map[string]map[string]domain.ParameterImpact, len(paramKeyFuncs))
	for param, keyFn := range paramKeyFuncs {
		grouped := make(map[string][]float64)
		for _, row := range rows {
			value := keyFn(row.Parameters)
			grouped[value] = append(grouped[value], row.Accuracy)
		}

		impact := make(map[string]domain.ParameterImpact, len(grouped))
		for value, accuracies := range grouped {
			impact[value] = domain.ParameterImpact{
				Mean:   mean(accuracies),
				StdDev: sampleStdDev(accuracies),
				Count:  len(accuracies),
			}
		}
		impacts[param] = impact
	}
	return impacts
}

// metricsPerConfiguration groups rows by their full configuration and
// derives confusion-matrix metrics per group. Output order follows first
// appearance so tie-breaks stay deterministic.
func metricsPerConfiguration(rows []domain.FlatResult) ([]domain.ConfigurationMetrics, error) {
	order := make([]domain.Configuration, 0)
	grouped := make(map[domain.Configuration][]domain.FlatResult)
	for _, row := range rows {
		if _, seen := grouped[row.Parameters]; !seen {
			order = append(order, row.Parameters)
		}
		grouped[row.Parameters] = append(grouped[row.Parameters], row)
	}

	metrics := make([]domain.ConfigurationMetrics, 0, len(order))
	for _, cfg := range order {
		m, err := ConfusionMetrics(cfg, grouped[cfg])
		if err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, nil
}

// ConfusionMetrics computes the 2x2 confusion matrix over the {yes,no} label
// space with "yes" as the positive class, plus accuracy, precision, recall
// and F1. A label outside the binary space is an error, never a silent
// default. Zero-division fallbacks: no positive predictions means precision
// 0, no positive true cases means recall 0, precision+recall 0 means F1 0.
func ConfusionMetrics(cfg domain.Configuration, rows []domain.FlatResult) (domain.ConfigurationMetrics, error) {
	var matrix domain.ConfusionMatrix
	for _, row := range rows {
		if err := validateLabel(row.TrueAnswer); err != nil {
			return domain.ConfigurationMetrics{}, fmt.Errorf("true answer for %q: %w", row.Question, err)
		}
		if err := validateLabel(row.PredictedAnswer); err != nil {
			return domain.ConfigurationMetrics{}, fmt.Errorf("predicted answer for %q: %w", row.Question, err)
		}

		switch {
		case row.TrueAnswer == domain.LabelYes && row.PredictedAnswer == domain.LabelYes:
			matrix.TruePositives++
		case row.TrueAnswer == domain.LabelNo && row.PredictedAnswer == domain.LabelYes:
			matrix.FalsePositives++
		case row.TrueAnswer == domain.LabelYes && row.PredictedAnswer == domain.LabelNo:
			matrix.FalseNegatives++
		default:
			matrix.TrueNegatives++
		}
	}

	accuracy := 0.0
	if total := matrix.Total(); total > 0 {
		accuracy = float64(matrix.TruePositives+matrix.TrueNegatives) / float64(total)
	}
	precision := 0.0
	if predicted := matrix.TruePositives + matrix.FalsePositives; predicted > 0 {
		precision = float64(matrix.TruePositives) / float64(predicted)
	}
	recall := 0.0
	if actual := matrix.TruePositives + matrix.FalseNegatives; actual > 0 {
		recall = float64(matrix.TruePositives) / float64(actual)
	}
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return domain.ConfigurationMetrics{
		Parameters: cfg,
		Accuracy:   accuracy,
		Precision:  precision,
		Recall:     recall,
		F1:         f1,
		Matrix:     matrix,
	}, nil
}

func validateLabel(label domain.Label) error {
	if label != domain.LabelYes && label != domain.LabelNo {
		return domain.WrapError(domain.ErrInvalidInput, "validate label", fmt.Errorf("label %q is outside the yes/no space", label))
	}
	return nil
}

// interactionPairs are the parameter pairs pivoted against each other.
var interactionPairs = [][2]string{
	{"max_results", "neural_ratio"},
	{"max_results", "hybrid_search"},
	{"neural_ratio", "hybrid_search"},
}

func interactionTables(rows []domain.FlatResult) []domain.InteractionTable {
	tables := make([]domain.InteractionTable, 0, len(interactionPairs))
	for _, pair := range interactionPairs {
		firstFn := paramKeyFuncs[pair[0]]
		secondFn := paramKeyFuncs[pair[1]]

		type cellKey struct{ first, second string }
		order := make([]cellKey, 0)
		grouped := make(map[cellKey][]float64)
		for _, row := range rows {
			key := cellKey{first: firstFn(row.Parameters), second: secondFn(row.Parameters)}
			if _, seen := grouped[key]; !seen {
				order = append(order, key)
			}
			grouped[key] = append(grouped[key], row.Accuracy)
		}

		table := domain.InteractionTable{FirstParameter: pair[0], SecondParameter: pair[1]}
		for _, key := range order {
			table.Cells = append(table.Cells, domain.InteractionCell{
				First:  key.first,
				Second: key.second,
				Mean:   mean(grouped[key]),
				Count:  len(grouped[key]),
			})
		}
		tables = append(tables, table)
	}
	return tables
}

// errorGroups buckets misclassified rows by (true, predicted) pair with a
// bounded random sample for qualitative review.
func errorGroups(rows []domain.FlatResult, sampleLimit int, rng *rand.Rand) []domain.ErrorGroup {
	type groupKey struct{ trueAnswer, predicted domain.Label }
	order := make([]groupKey, 0)
	grouped := make(map[groupKey][]domain.FlatResult)
	for _, row := range rows {
		if row.IsCorrect {
			continue
		}
		key := groupKey{trueAnswer: row.TrueAnswer, predicted: row.PredictedAnswer}
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], row)
	}

	groups := make([]domain.ErrorGroup, 0, len(order))
	for _, key := range order {
		cases := grouped[key]
		samples := make([]domain.FlatResult, len(cases))
		copy(samples, cases)
		rng.Shuffle(len(samples), func(i, j int) {
			samples[i], samples[j] = samples[j], samples[i]
		})
		if len(samples) > sampleLimit {
			samples = samples[:sampleLimit]
		}
		groups = append(groups, domain.ErrorGroup{
			TrueAnswer:      key.trueAnswer,
			PredictedAnswer: key.predicted,
			Count:           len(cases),
			Samples:         samples,
		})
	}
	return groups
}

func bestMetrics(metrics []domain.ConfigurationMetrics) *domain.ConfigurationMetrics {
	var best *domain.ConfigurationMetrics
	for i := range metrics {
		if best == nil || metrics[i].Accuracy > best.Accuracy {
			best = &metrics[i]
		}
	}
	return best
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStdDev uses the n-1 denominator and is 0 for fewer than two samples.
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
