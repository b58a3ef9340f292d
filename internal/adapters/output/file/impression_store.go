package file

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure ImpressionStore implements the output port
var _ output.ImpressionStore = (*ImpressionStore)(nil)

// NoImpression is returned when nothing is stored for a user.
const NoImpression = "none"

// ImpressionStore struct - Output adapter reading per-author impression
// summaries from a flat JSON map. The file is operator-maintained; it is
// read once and kept in memory.
type ImpressionStore struct {
	once        sync.Once
	path        string
	impressions map[string]string
}

// NewImpressionStore creates an impression store rooted at dir.
func NewImpressionStore(dir string) *ImpressionStore {
	return &ImpressionStore{path: filepath.Join(dir, "impressions.json")}
}

// Impression returns the stored summary for userID, or NoImpression.
func (s *ImpressionStore) Impression(userID string) string {
	s.once.Do(func() {
		s.impressions = map[string]string{}
		if err := readJSON(s.path, &s.impressions); err != nil && !errors.Is(err, os.ErrNotExist) {
			logrus.Warnf("Impression file unreadable, continuing without: %v", err)
		}
	})
	if v, ok := s.impressions[userID]; ok && v != "" {
		return v
	}
	return NoImpression
}
