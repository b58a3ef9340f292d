package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

// Shared in-memory fakes for the application service tests.

type fakeFeed struct {
	mu sync.Mutex

	feeds     map[string][]domain.Post
	ownPosts  []domain.Post
	publishID string

	likeErr    error
	commentErr error
	replyErr   error
	publishErr error
	fetchErr   error

	// errors consumed once, for retry tests
	likeErrOnce    error
	fetchErrOnce   error
	publishErrOnce error

	likes     []string
	comments  []string
	replies   []string
	published []string
	images    [][][]byte
	fetches   int
}

var _ output.FeedClient = (*fakeFeed)(nil)

func (f *fakeFeed) FetchFeed(_ context.Context, targetID string, _ int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErrOnce != nil {
		err := f.fetchErrOnce
		f.fetchErrOnce = nil
		return nil, err
	}
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.feeds[targetID], nil
}

func (f *fakeFeed) FetchOwnRecent(_ context.Context, _ int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.ownPosts, nil
}

func (f *fakeFeed) Like(_ context.Context, ownerID, postID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likeErrOnce != nil {
		err := f.likeErrOnce
		f.likeErrOnce = nil
		return err
	}
	if f.likeErr != nil {
		return f.likeErr
	}
	f.likes = append(f.likes, ownerID+"/"+postID)
	return nil
}

func (f *fakeFeed) Comment(_ context.Context, ownerID, postID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments = append(f.comments, ownerID+"/"+postID+": "+text)
	return nil
}

func (f *fakeFeed) Reply(_ context.Context, _, postID, commentID, nickname, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return f.replyErr
	}
	f.replies = append(f.replies, postID+"/"+commentID+" @"+nickname+": "+text)
	return nil
}

func (f *fakeFeed) Publish(_ context.Context, text string, images [][]byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErrOnce != nil {
		err := f.publishErrOnce
		f.publishErrOnce = nil
		return "", err
	}
	if f.publishErr != nil {
		return "", f.publishErr
	}
	f.published = append(f.published, text)
	f.images = append(f.images, images)
	if f.publishID != "" {
		return f.publishID, nil
	}
	return fmt.Sprintf("tid-%d", len(f.published)), nil
}

type fakeSessions struct {
	mu          sync.Mutex
	session     *domain.Session
	acquireErr  error
	acquires    int
	invalidates int
}

var _ output.SessionManager = (*fakeSessions)(nil)

func newFakeSessions(uin string) *fakeSessions {
	return &fakeSessions{session: domain.NewSession(map[string]string{
		"uin": "o0" + uin, "skey": "s", "p_uin": "o0" + uin, "p_skey": "p",
	}, "test")}
}

func (f *fakeSessions) Acquire(context.Context) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.session, nil
}

func (f *fakeSessions) Invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidates++
}

// fakeGenerator returns queued responses in order, falling back to a default.
type fakeGenerator struct {
	mu       sync.Mutex
	queue    []string
	fallback string
	err      error
	prompts  []string
}

var _ output.TextGenerator = (*fakeGenerator)(nil)

func (f *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		return next, nil
	}
	if f.fallback != "" {
		return f.fallback, nil
	}
	return "generated text", nil
}

type fakeImages struct {
	mu    sync.Mutex
	image []byte
	err   error
	calls int
}

var _ output.ImageGenerator = (*fakeImages)(nil)

func (f *fakeImages) GenerateImage(context.Context, string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.image != nil {
		return f.image, nil
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

type fakeImpressions struct{ byUser map[string]string }

var _ output.ImpressionStore = (*fakeImpressions)(nil)

func (f *fakeImpressions) Impression(userID string) string {
	if s, ok := f.byUser[userID]; ok {
		return s
	}
	return "none"
}

// fakeLedgerStore keeps state in memory and can fail saves on demand.
type fakeLedgerStore struct {
	mu      sync.Mutex
	state   output.LedgerState
	saveErr error
	saves   int
}

var _ output.LedgerStore = (*fakeLedgerStore)(nil)

func (f *fakeLedgerStore) Load() (*output.LedgerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.state
	return &state, nil
}

func (f *fakeLedgerStore) Save(state *output.LedgerState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.state = *state
	return nil
}

type fakeScheduleStore struct {
	mu    sync.Mutex
	state domain.ScheduleState
	saves int
}

var _ output.ScheduleStore = (*fakeScheduleStore)(nil)

func (f *fakeScheduleStore) Load() (*domain.ScheduleState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := f.state
	return &state, nil
}

func (f *fakeScheduleStore) Save(state *domain.ScheduleState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.state = *state
	return nil
}

type fakeChatLog struct {
	messages []domain.ChatMessage
	private  *domain.ChatMessage
	err      error
}

var _ output.ChatLogStore = (*fakeChatLog)(nil)

func (f *fakeChatLog) MessagesBetween(_ context.Context, start, end time.Time, _ output.ChatFilter) ([]domain.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ChatMessage
	for _, m := range f.messages {
		if !m.Timestamp.Before(start) && m.Timestamp.Before(end) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeChatLog) LatestPrivate(context.Context, string, bool) (*domain.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.private, nil
}

// fakeDiaryStore is an in-memory DiaryStore.
type fakeDiaryStore struct {
	mu      sync.Mutex
	entries []domain.DiaryEntry
	saveErr error
}

var _ output.DiaryStore = (*fakeDiaryStore)(nil)

func (f *fakeDiaryStore) NextSeq(date string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	max := 0
	for _, e := range f.entries {
		if e.Date == date && e.Seq > max {
			max = e.Seq
		}
	}
	return max + 1, nil
}

func (f *fakeDiaryStore) Save(entry *domain.DiaryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeDiaryStore) ByDate(date string) ([]domain.DiaryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.DiaryEntry
	for _, e := range f.entries {
		if e.Date == date {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (f *fakeDiaryStore) Recent(limit int) ([]domain.DiaryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DiaryEntry, len(f.entries))
	copy(out, f.entries)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].Seq > out[j].Seq
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDiaryStore) Stats() (*domain.DiaryStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := &domain.DiaryStats{TotalCount: len(f.entries)}
	for _, e := range f.entries {
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

type fakeActivity struct {
	activity *domain.Activity
	err      error
	calls    int
}

var _ output.ActivityProvider = (*fakeActivity)(nil)

func (f *fakeActivity) CurrentActivity(context.Context) (*domain.Activity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.activity, nil
}
