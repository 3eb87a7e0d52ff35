package domain

// ConfusionMatrix is the 2x2 matrix over the {yes,no} label space, with
// "yes" as the positive class.
type ConfusionMatrix struct {
	TruePositives  int `json:"true_positives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
	TrueNegatives  int `json:"true_negatives"`
}

func (m ConfusionMatrix) Total() int {
	return m.TruePositives + m.FalsePositives + m.FalseNegatives + m.TrueNegatives
}

// ConfigurationMetrics bundles the confusion-matrix-derived metrics for one
// configuration. Zero-division policy: precision is 0 when no positive
// predictions exist, recall is 0 when no positive true cases exist, F1 is 0
// when precision+recall is 0.
type ConfigurationMetrics struct {
	Parameters Configuration   `json:"parameters"`
	Accuracy   float64         `json:"accuracy"`
	Precision  float64         `json:"precision"`
	Recall     float64         `json:"recall"`
	F1         float64         `json:"f1"`
	Matrix     ConfusionMatrix `json:"confusion_matrix"`
}

// ParameterImpact summarizes accuracy across all flattened rows sharing one
// value of one configuration parameter.
type ParameterImpact struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Count  int     `json:"count"`
}

// InteractionCell is the mean accuracy over rows sharing one pair of values
// across two configuration parameters.
type InteractionCell struct {
	First  string  `json:"first"`
	Second string  `json:"second"`
	Mean   float64 `json:"mean"`
	Count  int     `json:"count"`
}

// InteractionTable is the pivot over one parameter pair, used to spot
// non-additive effects.
type InteractionTable struct {
	FirstParameter  string            `json:"first_parameter"`
	SecondParameter string            `json:"second_parameter"`
	Cells           []InteractionCell `json:"cells"`
}

// ErrorGroup is the misclassification bucket for one (true, predicted) pair
// with a bounded sample for qualitative review.
type ErrorGroup struct {
	TrueAnswer      Label        `json:"true_answer"`
	PredictedAnswer Label        `json:"predicted_answer"`
	Count           int          `json:"count"`
	Samples         []FlatResult `json:"samples"`
}

// AnalysisReport is the full cross-configuration comparison produced from
// every reloaded final record.
type AnalysisReport struct {
	Rows             int                                   `json:"rows"`
	OverallAccuracy  float64                               `json:"overall_accuracy"`
	ParameterImpacts map[string]map[string]ParameterImpact `json:"parameter_impacts"`
	PerConfiguration []ConfigurationMetrics                `json:"per_configuration"`
	Interactions     []InteractionTable                    `json:"interactions"`
	ErrorGroups      []ErrorGroup                          `json:"error_groups"`
	Best             *ConfigurationMetrics                 `json:"best,omitempty"`
}

// FlatResult is one detailed_results row joined with its parent run's
// accuracy and parameters. This is the sole ingestion shape when reloading
// persisted runs for analysis.
type FlatResult struct {
	Accuracy        float64       `json:"accuracy"`
	Parameters      Configuration `json:"parameters"`
	Question        string        `json:"question"`
	TrueAnswer      Label         `json:"true_answer"`
	PredictedAnswer Label         `json:"predicted_answer"`
	IsCorrect       bool          `json:"is_correct"`
}
