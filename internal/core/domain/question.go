package domain

import "strings"

// Label is a binary ground-truth / prediction value.
type Label string

const (
	LabelYes Label = "yes"
	LabelNo  Label = "no"
)

// NormalizeLabel maps a free-form judge answer onto the binary label space.
// The contract is exact match on "yes" after trimming and lowercasing;
// everything else, including an empty answer, is "no".
func NormalizeLabel(raw string) Label {
	if strings.ToLower(strings.TrimSpace(raw)) == string(LabelYes) {
		return LabelYes
	}
	return LabelNo
}

// IsWellFormedLabel reports whether a raw judge answer already is one of the
// two expected values. Used to log malformed judge output before it gets
// absorbed into "no" by NormalizeLabel.
func IsWellFormedLabel(raw string) bool {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	return normalized == string(LabelYes) || normalized == string(LabelNo)
}

// Question is one labeled entry of the evaluation dataset.
type Question struct {
	Text       string
	TrueAnswer Label
}

// Paper is a single search result used as novelty evidence.
type Paper struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title"`
	Author        string `json:"author,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	Summary       string `json:"summary,omitempty"`
	URL           string `json:"url"`
}

// Judgment is the raw verdict produced by the judgment collaborator.
type Judgment struct {
	Novelty     string `json:"novelty"`
	Explanation string `json:"explanation"`
}

// NoveltyReport is the user-facing result of a single novelty check.
type NoveltyReport struct {
	Novelty     string  `json:"novelty"`
	Explanation string  `json:"explanation"`
	Papers      []Paper `json:"papers"`
}
