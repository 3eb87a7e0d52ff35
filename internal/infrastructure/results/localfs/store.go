package localfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hasanyone/noveltycheck/internal/core/domain"
)

const (
	interimPrefix = "interim_results_"
	finalPrefix   = "evaluation_results_"
	timeLayout    = "20060102-150405"
)

// Store persists evaluation records as JSON files. The filename convention
// is the index: interim checkpoints live at interim_results_<key>.json and
// are overwritten per key, final records at
// evaluation_results_<key>_<timestamp>.json and are never reused. Discovery
// works purely off the final prefix, no manifest exists.
type Store struct {
	dir string
	now func() time.Time
}

func New(dir string) (*Store, error) {
	if dir == "" {
		dir = "./results"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

func (s *Store) WriteInterim(_ context.Context, key string, outcomes []domain.Outcome) error {
	path := filepath.Join(s.dir, interimPrefix+key+".json")
	if err := s.writeAtomic(path, outcomes); err != nil {
		return fmt.Errorf("write interim record %s: %w", key, err)
	}
	return nil
}

func (s *Store) WriteFinal(_ context.Context, key string, run domain.EvaluationRun) error {
	name := fmt.Sprintf("%s%s_%s.json", finalPrefix, key, s.now().UTC().Format(timeLayout))
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("final record already exists: %s", name)
	}
	if err := s.writeAtomic(path, run); err != nil {
		return fmt.Errorf("write final record %s: %w", key, err)
	}
	return nil
}

func (s *Store) LoadFinalRuns(_ context.Context) ([]domain.EvaluationRun, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list results dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, finalPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	runs := make([]domain.EvaluationRun, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return nil, fmt.Errorf("read final record %s: %w", name, err)
		}
		var run domain.EvaluationRun
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("decode final record %s: %w", name, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// writeAtomic makes the record visible all-or-nothing: the payload lands in
// a temp file first and reaches its final name via rename.
func (s *Store) writeAtomic(path string, record any) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-record-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
