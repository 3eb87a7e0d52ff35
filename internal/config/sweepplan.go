package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hasanyone/noveltycheck/internal/core/usecase"
)

// LoadSweepPlan reads a sweep grid from a YAML file. A typical plan:
//
//	max_results: [5, 10, 20]
//	hybrid_search: [true, false]
//	neural_ratios: [0.3, 0.5, 0.8]
//	models:
//	  - openai/gpt-4o
//	  - google/gemini-2.0-flash-001
func LoadSweepPlan(path string) (usecase.SweepGrid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return usecase.SweepGrid{}, fmt.Errorf("read sweep plan: %w", err)
	}

	var grid usecase.SweepGrid
	if err := yaml.Unmarshal(data, &grid); err != nil {
		return usecase.SweepGrid{}, fmt.Errorf("parse sweep plan: %w", err)
	}
	return grid, nil
}
