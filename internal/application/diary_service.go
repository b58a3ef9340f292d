package application

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"qzone-agent/configs"
	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// DiaryService struct - Application service turning one day of chat history
// into a diary entry, optionally publishing it to the feed.
type DiaryService struct {
	chatLog   output.ChatLogStore
	generator output.TextGenerator
	store     output.DiaryStore
	feed      output.FeedClient
	sessions  output.SessionManager

	personality string
	config      configs.Diary

	now func() time.Time
}

// NewDiaryService func - Creates the diary generator.
func NewDiaryService(
	chatLog output.ChatLogStore,
	generator output.TextGenerator,
	store output.DiaryStore,
	feed output.FeedClient,
	sessions output.SessionManager,
	personality string,
	config configs.Diary,
) *DiaryService {
	return &DiaryService{
		chatLog:     chatLog,
		generator:   generator,
		store:       store,
		feed:        feed,
		sessions:    sessions,
		personality: personality,
		config:      config,
	}
}

func (s *DiaryService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Generate builds and stores a diary entry for date (YYYY-MM-DD). Too little
// source material yields domain.ErrInsufficientData and nothing is stored.
// Regenerating a date appends the next sequence number instead of
// overwriting.
func (s *DiaryService) Generate(ctx context.Context, date string) (*domain.DiaryEntry, error) {
	day, err := time.ParseInLocation(domain.DateLayout, date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("bad diary date %q: %w", date, err)
	}

	messages, err := s.chatLog.MessagesBetween(ctx, day, day.AddDate(0, 0, 1), output.ChatFilter{
		Mode:  s.filterMode(),
		Chats: s.config.TargetChats,
	})
	if err != nil {
		return nil, fmt.Errorf("collecting chat history: %w", err)
	}
	if len(messages) < s.minMessageCount() {
		return nil, fmt.Errorf("%w: %d messages on %s, need %d",
			domain.ErrInsufficientData, len(messages), date, s.minMessageCount())
	}

	style := s.style()
	minWords, maxWords := s.wordBudget()
	prompt := diaryPrompt(style, s.config.CustomPrompt, s.personality, date, renderTimeline(messages), minWords, maxWords)

	content, err := s.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: diary generation: %v", domain.ErrGeneration, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty diary body", domain.ErrGeneration)
	}

	seq, err := s.store.NextSeq(date)
	if err != nil {
		return nil, fmt.Errorf("allocating diary sequence: %w", err)
	}

	entry := &domain.DiaryEntry{
		Date:        date,
		Seq:         seq,
		Style:       style,
		Content:     content,
		WordCount:   utf8.RuneCountInString(content),
		SourceCount: len(messages),
		GeneratedAt: s.clock(),
	}

	if s.config.AutoPublish {
		if err := s.publish(ctx, entry); err != nil {
			logrus.Warnf("Auto-publishing diary %s/%d failed: %v", date, seq, err)
		}
	}

	if err := s.store.Save(entry); err != nil {
		return nil, fmt.Errorf("%w: saving diary: %v", domain.ErrStatePersist, err)
	}

	logrus.Infof("Diary %s/%d generated from %d messages (%d chars)", date, seq, entry.SourceCount, entry.WordCount)
	return entry, nil
}

// publish posts the diary body to the feed and flags the entry.
func (s *DiaryService) publish(ctx context.Context, entry *domain.DiaryEntry) error {
	_, err := withAuthRetry(s.sessions, func() (string, error) {
		return s.feed.Publish(ctx, entry.Content, nil)
	})
	if err != nil {
		return err
	}
	entry.Published = true
	return nil
}

// List returns the newest entries across dates, newest first.
func (s *DiaryService) List(limit int) ([]domain.DiaryEntry, error) {
	return s.store.Recent(limit)
}

// Entries returns all entries of one date ordered by sequence.
func (s *DiaryService) Entries(date string) ([]domain.DiaryEntry, error) {
	return s.store.ByDate(date)
}

// Stats summarizes the stored diary corpus.
func (s *DiaryService) Stats() (*domain.DiaryStats, error) {
	return s.store.Stats()
}

// Due reports whether the daily diary should fire at now: the wall clock has
// passed the configured time and lastDate is not today yet.
func (s *DiaryService) Due(now time.Time, lastDate string) bool {
	if !s.config.Enabled || s.config.ScheduleTime == "" {
		return false
	}
	at, err := time.ParseInLocation(domain.ClockLayout, s.config.ScheduleTime, time.Local)
	if err != nil {
		logrus.Warnf("Bad diary schedule time %q", s.config.ScheduleTime)
		return false
	}
	today := now.Format(domain.DateLayout)
	if lastDate == today {
		return false
	}
	nowMinutes := now.Hour()*60 + now.Minute()
	return nowMinutes >= at.Hour()*60+at.Minute()
}

func (s *DiaryService) filterMode() string {
	if s.config.FilterMode == "" {
		return "all"
	}
	return s.config.FilterMode
}

func (s *DiaryService) style() domain.DiaryStyle {
	switch domain.DiaryStyle(s.config.Style) {
	case domain.DiaryStyleSocial:
		return domain.DiaryStyleSocial
	case domain.DiaryStyleCustom:
		return domain.DiaryStyleCustom
	default:
		return domain.DiaryStyleJournal
	}
}

func (s *DiaryService) minMessageCount() int {
	if s.config.MinMessageCount > 0 {
		return s.config.MinMessageCount
	}
	return 3
}

func (s *DiaryService) wordBudget() (int, int) {
	min, max := s.config.MinWordCount, s.config.MaxWordCount
	if min <= 0 {
		min = 250
	}
	if max < min {
		max = min + 100
	}
	return min, max
}
