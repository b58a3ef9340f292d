package domain

import "time"

// DiaryStyle selects the prompt template used for diary rendering.
type DiaryStyle string

const (
	// DiaryStyleJournal renders a first-person end-of-day journal entry.
	DiaryStyleJournal DiaryStyle = "diary"
	// DiaryStyleSocial renders a short social-post flavored recap.
	DiaryStyleSocial DiaryStyle = "qzone"
	// DiaryStyleCustom renders a user-supplied template.
	DiaryStyleCustom DiaryStyle = "custom"
)

// DiaryEntry is one generated diary, keyed by (Date, Seq). Entries are
// append-only: regenerating a date adds the next sequence number instead of
// overwriting.
type DiaryEntry struct {
	Date        string     `json:"date"` // YYYY-MM-DD
	Seq         int        `json:"seq"`  // 1-based per date
	Style       DiaryStyle `json:"style"`
	Content     string     `json:"content"`
	WordCount   int        `json:"word_count"`
	SourceCount int        `json:"source_count"` // messages the entry was built from
	GeneratedAt time.Time  `json:"generated_at"`
	Published   bool       `json:"published"`
}

// DiaryStats summarizes the stored diary corpus.
type DiaryStats struct {
	TotalCount int
	TotalWords int
	AvgWords   int
	LatestDate string
}

// ChatMessage is one message pulled from the chat-log store as diary source
// material.
type ChatMessage struct {
	Sender    string
	Text      string
	Timestamp time.Time
}
