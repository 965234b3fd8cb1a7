package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// FileStore keeps the ledger as a JSON map of card id to recorded stage
// ids, rewritten on every update. Fine for a single-process deployment,
// which the run lock guarantees.
type FileStore struct {
	path    string
	entries map[string][]int
}

// NewFileStore opens (or initializes) the ledger file. A missing file
// is an empty ledger, not an error.
func NewFileStore(storeURL string) (*FileStore, error) {
	path := strings.TrimPrefix(storeURL, "file://")

	store := &FileStore{
		path:    path,
		entries: make(map[string][]int),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}

		return nil, fmt.Errorf("failed to read ledger file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &store.entries); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file %s: %w", path, err)
	}

	return store, nil
}

func (s *FileStore) Completed(_ context.Context, cardID int) (map[int]bool, error) {
	stages := make(map[int]bool)
	for _, stageID := range s.entries[strconv.Itoa(cardID)] {
		stages[stageID] = true
	}

	return stages, nil
}

func (s *FileStore) MarkCompleted(_ context.Context, cardID, stageID int) error {
	key := strconv.Itoa(cardID)

	for _, existing := range s.entries[key] {
		if existing == stageID {
			return nil
		}
	}

	s.entries[key] = append(s.entries[key], stageID)

	return s.flush()
}

func (s *FileStore) HealthCheck(_ context.Context) error {
	if s.entries == nil {
		return errors.New("ledger not initialized")
	}

	return nil
}

func (s *FileStore) Close(_ context.Context) error {
	return nil
}

func (s *FileStore) flush() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write ledger file %s: %w", s.path, err)
	}

	return nil
}
