package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

// Loader reads labeled questions from a CSV file with question, yes_no and
// split columns. Load filters rows to one split; labels are lowercased at
// the boundary so downstream comparisons see canonical form.
type Loader struct {
	path string
}

func New(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Load(ctx context.Context, split string) ([]domain.Question, error) {
	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	columns, err := resolveColumns(header)
	if err != nil {
		return nil, err
	}

	questions := make([]domain.Question, 0)
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row %d: %w", line, err)
		}
		if len(row) <= columns.max() {
			return nil, fmt.Errorf("dataset row %d has %d fields: %w", line, len(row), domain.ErrInvalidInput)
		}
		if row[columns.split] != split {
			continue
		}
		questions = append(questions, domain.Question{
			Text:       row[columns.question],
			TrueAnswer: domain.Label(strings.ToLower(strings.TrimSpace(row[columns.answer]))),
		})
	}
	return questions, nil
}

type columnIndexes struct {
	question int
	answer   int
	split    int
}

func (c columnIndexes) max() int {
	out := c.question
	if c.answer > out {
		out = c.answer
	}
	if c.split > out {
		out = c.split
	}
	return out
}

func resolveColumns(header []string) (columnIndexes, error) {
	indexes := columnIndexes{question: -1, answer: -1, split: -1}
	for idx, name := range header {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "question":
			indexes.question = idx
		case "yes_no":
			indexes.answer = idx
		case "split":
			indexes.split = idx
		}
	}
	if indexes.question < 0 || indexes.answer < 0 || indexes.split < 0 {
		return columnIndexes{}, fmt.Errorf("dataset header missing question, yes_no or split column: %w", domain.ErrInvalidInput)
	}
	return indexes, nil
}
