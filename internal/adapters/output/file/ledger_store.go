package file

import (
	"errors"
	"os"
	"path/filepath"

	"qzone-agent/internal/ports/output"
)

// Compile-time check to ensure LedgerStore implements the output port
var _ output.LedgerStore = (*LedgerStore)(nil)

// LedgerStore struct - Output adapter persisting the dedup ledger as one
// flat JSON file with atomic replace on write.
type LedgerStore struct {
	path string
}

// NewLedgerStore creates a ledger store rooted at dir.
func NewLedgerStore(dir string) *LedgerStore {
	return &LedgerStore{path: filepath.Join(dir, "processed.json")}
}

// Load reads the persisted sets. A missing file yields an empty state.
func (s *LedgerStore) Load() (*output.LedgerState, error) {
	var state output.LedgerState
	if err := readJSON(s.path, &state); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &output.LedgerState{}, nil
		}
		return nil, err
	}
	return &state, nil
}

// Save atomically replaces the persisted sets.
func (s *LedgerStore) Save(state *output.LedgerState) error {
	return writeJSONAtomic(s.path, state)
}
