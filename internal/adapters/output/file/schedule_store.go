package file

import (
	"errors"
	"os"
	"path/filepath"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

// Compile-time check to ensure ScheduleStore implements the output port
var _ output.ScheduleStore = (*ScheduleStore)(nil)

// ScheduleStore struct - Output adapter persisting cooldown timestamps.
type ScheduleStore struct {
	path string
}

// NewScheduleStore creates a schedule store rooted at dir.
func NewScheduleStore(dir string) *ScheduleStore {
	return &ScheduleStore{path: filepath.Join(dir, "schedule.json")}
}

// Load reads the persisted schedule state. A missing file yields zero
// timestamps, i.e. no cooldown in force.
func (s *ScheduleStore) Load() (*domain.ScheduleState, error) {
	var state domain.ScheduleState
	if err := readJSON(s.path, &state); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &domain.ScheduleState{}, nil
		}
		return nil, err
	}
	return &state, nil
}

// Save atomically replaces the persisted schedule state.
func (s *ScheduleStore) Save(state *domain.ScheduleState) error {
	return writeJSONAtomic(s.path, state)
}
