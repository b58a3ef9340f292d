package output

import "qzone-agent/internal/domain"

// LedgerState is the persisted form of the dedup ledger: both recency sets,
// oldest-first.
type LedgerState struct {
	Posts    []string `json:"posts"`
	Comments []string `json:"comments"`
}

// LedgerStore interface - Output port
// Read-whole/write-whole persistence for the dedup ledger. Save must replace
// the previous state atomically so a crash cannot leave a torn file.
type LedgerStore interface {
	Load() (*LedgerState, error)
	Save(state *LedgerState) error
}

// ScheduleStore interface - Output port
// Persistence for cooldown timestamps. Loaded at start so a restart cannot
// bypass a cooldown.
type ScheduleStore interface {
	Load() (*domain.ScheduleState, error)
	Save(state *domain.ScheduleState) error
}

// CookieCache interface - Output port
// Durable storage for the last-good cookie set, backing the "local"
// acquisition source.
type CookieCache interface {
	Load() (map[string]string, error)
	Save(cookies map[string]string) error
}

// DiaryStore interface - Output port
// Append-only storage for generated diary entries, keyed by (date, seq).
type DiaryStore interface {
	// NextSeq returns the next free sequence number for date, starting at 1.
	NextSeq(date string) (int, error)
	Save(entry *domain.DiaryEntry) error
	// ByDate returns all entries for a date ordered by seq.
	ByDate(date string) ([]domain.DiaryEntry, error)
	// Recent returns the newest entries across dates, newest first.
	Recent(limit int) ([]domain.DiaryEntry, error)
	Stats() (*domain.DiaryStats, error)
}
