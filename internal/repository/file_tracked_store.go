package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"VolRank/internal/domain/repository"
)

// trackedRecord is the persisted layout: a single mapping with one
// recognized key. Unknown keys are ignored on load and not carried over on
// save (save is a full replace).
type trackedRecord struct {
	TradingPairNames []string `json:"trading_pair_names"`
}

// FileTrackedStore persists the tracked-symbol set in a flat JSON file.
type FileTrackedStore struct {
	path string
}

// NewFileTrackedStore creates a file-backed tracked-set store.
func NewFileTrackedStore(path string) repository.TrackedSetStore {
	return &FileTrackedStore{path: path}
}

// Load reads the persisted set. A missing file is an empty set, not an
// error.
func (s *FileTrackedStore) Load(_ context.Context) ([]string, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read tracked set: %w", err)
	}

	var rec trackedRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("parse tracked set: %w", err)
	}
	if rec.TradingPairNames == nil {
		return []string{}, nil
	}
	return rec.TradingPairNames, nil
}

// Save overwrites the persisted set.
func (s *FileTrackedStore) Save(_ context.Context, symbols []string) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create tracked set dir: %w", err)
		}
	}

	b, err := json.Marshal(trackedRecord{TradingPairNames: symbols})
	if err != nil {
		return fmt.Errorf("encode tracked set: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return fmt.Errorf("write tracked set: %w", err)
	}
	return nil
}
