package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

// Compile-time check to ensure DiaryStore implements the output port
var _ output.DiaryStore = (*DiaryStore)(nil)

// DiaryStore struct - Output adapter storing one JSON file per diary entry,
// named <date>_<seq>.json. Entries are append-only; a new generation for a
// date takes the next free sequence number.
type DiaryStore struct {
	dir string
}

// NewDiaryStore creates a diary store rooted at dir.
func NewDiaryStore(dir string) *DiaryStore {
	return &DiaryStore{dir: filepath.Join(dir, "diaries")}
}

func (s *DiaryStore) entryPath(date string, seq int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%03d.json", date, seq))
}

// NextSeq returns the next free sequence number for date, starting at 1.
func (s *DiaryStore) NextSeq(date string) (int, error) {
	entries, err := s.ByDate(date)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, e := range entries {
		if e.Seq > max {
			max = e.Seq
		}
	}
	return max + 1, nil
}

// Save writes one entry atomically.
func (s *DiaryStore) Save(entry *domain.DiaryEntry) error {
	return writeJSONAtomic(s.entryPath(entry.Date, entry.Seq), entry)
}

// ByDate returns all entries for a date ordered by seq.
func (s *DiaryStore) ByDate(date string) ([]domain.DiaryEntry, error) {
	all, err := s.readAll(func(name string) bool {
		return strings.HasPrefix(name, date+"_")
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Seq < all[j].Seq })
	return all, nil
}

// Recent returns the newest entries across dates, newest first.
func (s *DiaryStore) Recent(limit int) ([]domain.DiaryEntry, error) {
	all, err := s.readAll(func(string) bool { return true })
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Date != all[j].Date {
			return all[i].Date > all[j].Date
		}
		return all[i].Seq > all[j].Seq
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Stats summarizes the stored corpus.
func (s *DiaryStore) Stats() (*domain.DiaryStats, error) {
	all, err := s.readAll(func(string) bool { return true })
	if err != nil {
		return nil, err
	}
	stats := &domain.DiaryStats{TotalCount: len(all)}
	for _, e := range all {
		stats.TotalWords += e.WordCount
		if e.Date > stats.LatestDate {
			stats.LatestDate = e.Date
		}
	}
	if stats.TotalCount > 0 {
		stats.AvgWords = stats.TotalWords / stats.TotalCount
	}
	return stats, nil
}

func (s *DiaryStore) readAll(match func(name string) bool) ([]domain.DiaryEntry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []domain.DiaryEntry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, ".json") || !match(name) {
			continue
		}
		var entry domain.DiaryEntry
		if err := readJSON(filepath.Join(s.dir, name), &entry); err != nil {
			// One unreadable entry should not hide the rest.
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}
