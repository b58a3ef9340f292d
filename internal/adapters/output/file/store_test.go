package file

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

func TestLedgerStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewLedgerStore(dir)

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if len(state.Posts) != 0 || len(state.Comments) != 0 {
		t.Fatalf("Load() on missing file = %+v, want empty state", state)
	}

	want := &output.LedgerState{
		Posts:    []string{"p1", "p2"},
		Comments: []string{"c1"},
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Posts) != 2 || got.Posts[0] != "p1" || got.Posts[1] != "p2" {
		t.Errorf("Load() posts = %v, want %v", got.Posts, want.Posts)
	}
	if len(got.Comments) != 1 || got.Comments[0] != "c1" {
		t.Errorf("Load() comments = %v, want %v", got.Comments, want.Comments)
	}
}

func TestLedgerStoreSaveReplacesPrevious(t *testing.T) {
	dir := t.TempDir()
	store := NewLedgerStore(dir)

	if err := store.Save(&output.LedgerState{Posts: []string{"old"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(&output.LedgerState{Posts: []string{"new"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Posts) != 1 || got.Posts[0] != "new" {
		t.Errorf("Load() posts = %v, want [new]", got.Posts)
	}
}

func TestScheduleStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewScheduleStore(dir)

	state, err := store.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if !state.LastPostAt.IsZero() || !state.LastBrowseAt.IsZero() {
		t.Fatalf("Load() on missing file = %+v, want zero timestamps", state)
	}

	now := time.Now().Truncate(time.Second)
	if err := store.Save(&domain.ScheduleState{LastPostAt: now, LastDiaryDate: "2026-08-28"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.LastPostAt.Equal(now) {
		t.Errorf("Load() LastPostAt = %v, want %v", got.LastPostAt, now)
	}
	if got.LastDiaryDate != "2026-08-28" {
		t.Errorf("Load() LastDiaryDate = %q, want 2026-08-28", got.LastDiaryDate)
	}
}

func TestCookieCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cache := NewCookieCache(dir)

	got, err := cache.Load()
	if err != nil {
		t.Fatalf("Load() on missing file error = %v", err)
	}
	if got != nil {
		t.Fatalf("Load() on missing file = %v, want nil", got)
	}

	cookies := map[string]string{"uin": "o12345", "p_skey": "abc"}
	if err := cache.Save(cookies); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err = cache.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got["uin"] != "o12345" || got["p_skey"] != "abc" {
		t.Errorf("Load() = %v, want %v", got, cookies)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(dir, "cookies.json"))
		if err != nil {
			t.Fatalf("Stat() error = %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("cookie file mode = %o, want 600", perm)
		}
	}
}

func TestDiaryStoreSeqNumbering(t *testing.T) {
	dir := t.TempDir()
	store := NewDiaryStore(dir)

	seq, err := store.NextSeq("2026-08-28")
	if err != nil {
		t.Fatalf("NextSeq() error = %v", err)
	}
	if seq != 1 {
		t.Fatalf("NextSeq() on empty store = %d, want 1", seq)
	}

	for i := 1; i <= 3; i++ {
		entry := &domain.DiaryEntry{
			Date:        "2026-08-28",
			Seq:         i,
			Style:       domain.DiaryStyleJournal,
			Content:     "entry",
			WordCount:   300,
			GeneratedAt: time.Now(),
		}
		if err := store.Save(entry); err != nil {
			t.Fatalf("Save() seq %d error = %v", i, err)
		}
	}

	seq, err = store.NextSeq("2026-08-28")
	if err != nil {
		t.Fatalf("NextSeq() error = %v", err)
	}
	if seq != 4 {
		t.Errorf("NextSeq() after 3 saves = %d, want 4", seq)
	}

	seq, err = store.NextSeq("2026-08-29")
	if err != nil {
		t.Fatalf("NextSeq() error = %v", err)
	}
	if seq != 1 {
		t.Errorf("NextSeq() for fresh date = %d, want 1", seq)
	}
}

func TestDiaryStoreByDateAndRecent(t *testing.T) {
	dir := t.TempDir()
	store := NewDiaryStore(dir)

	entries := []domain.DiaryEntry{
		{Date: "2026-08-27", Seq: 1, WordCount: 200},
		{Date: "2026-08-28", Seq: 1, WordCount: 300},
		{Date: "2026-08-28", Seq: 2, WordCount: 400},
	}
	for i := range entries {
		if err := store.Save(&entries[i]); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	byDate, err := store.ByDate("2026-08-28")
	if err != nil {
		t.Fatalf("ByDate() error = %v", err)
	}
	if len(byDate) != 2 || byDate[0].Seq != 1 || byDate[1].Seq != 2 {
		t.Errorf("ByDate() = %+v, want seq 1 then 2", byDate)
	}

	recent, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(recent))
	}
	if recent[0].Date != "2026-08-28" || recent[0].Seq != 2 {
		t.Errorf("Recent()[0] = %s/%d, want 2026-08-28/2", recent[0].Date, recent[0].Seq)
	}
	if recent[1].Date != "2026-08-28" || recent[1].Seq != 1 {
		t.Errorf("Recent()[1] = %s/%d, want 2026-08-28/1", recent[1].Date, recent[1].Seq)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalCount != 3 || stats.TotalWords != 900 || stats.AvgWords != 300 {
		t.Errorf("Stats() = %+v, want 3 entries / 900 words / avg 300", stats)
	}
	if stats.LatestDate != "2026-08-28" {
		t.Errorf("Stats() LatestDate = %q, want 2026-08-28", stats.LatestDate)
	}
}

func TestImpressionStoreFallback(t *testing.T) {
	dir := t.TempDir()

	store := NewImpressionStore(dir)
	if got := store.Impression("42"); got != NoImpression {
		t.Errorf("Impression() with no file = %q, want %q", got, NoImpression)
	}

	path := filepath.Join(dir, "impressions.json")
	if err := os.WriteFile(path, []byte(`{"42":"an old friend"}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store = NewImpressionStore(dir)
	if got := store.Impression("42"); got != "an old friend" {
		t.Errorf("Impression(42) = %q, want stored value", got)
	}
	if got := store.Impression("99"); got != NoImpression {
		t.Errorf("Impression(99) = %q, want %q", got, NoImpression)
	}
}
