package xlsxfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

// Loader reads labeled questions from the first sheet of an xlsx workbook.
// It expects the same question, yes_no and split columns as the CSV loader;
// research teams often hand the dataset around as a spreadsheet.
type Loader struct {
	path string
}

func New(path string) *Loader {
	return &Loader{path: path}
}

func (l *Loader) Load(ctx context.Context, split string) ([]domain.Question, error) {
	workbook, err := excelize.OpenFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets: %w", domain.ErrInvalidInput)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty: %w", sheets[0], domain.ErrInvalidInput)
	}

	questionCol, answerCol, splitCol := -1, -1, -1
	for idx, name := range rows[0] {
		switch strings.TrimSpace(strings.ToLower(name)) {
		case "question":
			questionCol = idx
		case "yes_no":
			answerCol = idx
		case "split":
			splitCol = idx
		}
	}
	if questionCol < 0 || answerCol < 0 || splitCol < 0 {
		return nil, fmt.Errorf("sheet header missing question, yes_no or split column: %w", domain.ErrInvalidInput)
	}

	questions := make([]domain.Question, 0)
	for _, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// GetRows trims trailing empty cells, so short rows are blanks.
		if cell(row, splitCol) != split {
			continue
		}
		text := cell(row, questionCol)
		if strings.TrimSpace(text) == "" {
			continue
		}
		questions = append(questions, domain.Question{
			Text:       text,
			TrueAnswer: domain.Label(strings.ToLower(strings.TrimSpace(cell(row, answerCol)))),
		})
	}
	return questions, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
