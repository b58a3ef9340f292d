package domain

import "time"

// ScheduleState carries the cooldown timestamps and the last diary date.
// It is persisted after every action so a restart cannot bypass a cooldown
// by resetting an in-memory clock.
type ScheduleState struct {
	LastPostAt    time.Time `json:"last_post_at"`
	LastBrowseAt  time.Time `json:"last_browse_at"`
	LastDiaryDate string    `json:"last_diary_date"` // YYYY-MM-DD
}

// CanPost reports whether the post cooldown has elapsed at now.
func (s *ScheduleState) CanPost(now time.Time, cooldown time.Duration) bool {
	return now.Sub(s.LastPostAt) >= cooldown
}

// CanBrowse reports whether the browse cooldown has elapsed at now.
func (s *ScheduleState) CanBrowse(now time.Time, cooldown time.Duration) bool {
	return now.Sub(s.LastBrowseAt) >= cooldown
}
