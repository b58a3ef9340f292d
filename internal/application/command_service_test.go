package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"qzone-agent/configs"
	"qzone-agent/internal/domain"
)

func newTestCommands(feed *fakeFeed, gen *fakeGenerator, images *fakeImages, chatLog *fakeChatLog, diaryStore *fakeDiaryStore, send configs.Send, imageConfig configs.Images) *CommandService {
	sessions := newFakeSessions("999")
	diary := NewDiaryService(chatLog, gen, diaryStore, feed, sessions, "test persona", configs.Diary{Enabled: true})
	service := NewCommandService(feed, sessions, gen, images, chatLog, diary, "test persona", send, imageConfig)
	service.now = func() time.Time { return time.Date(2026, 3, 2, 15, 0, 0, 0, time.Local) }
	return service
}

func TestSendPublishesGeneratedPost(t *testing.T) {
	feed := &fakeFeed{publishID: "tid-42"}
	gen := &fakeGenerator{fallback: "a sunny afternoon"}
	service := newTestCommands(feed, gen, nil, &fakeChatLog{}, &fakeDiaryStore{}, configs.Send{}, configs.Images{})

	tid, err := service.Send(context.Background(), "10001", "weather")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if tid != "tid-42" {
		t.Fatalf("tid = %q, want tid-42", tid)
	}
	if len(feed.published) != 1 || feed.published[0] != "a sunny afternoon" {
		t.Fatalf("published = %v", feed.published)
	}
	if !strings.Contains(gen.prompts[len(gen.prompts)-1], "weather") {
		t.Fatal("topic missing from generation prompt")
	}
}

func TestSendPermissionPolicy(t *testing.T) {
	tests := []struct {
		name    string
		send    configs.Send
		caller  string
		allowed bool
	}{
		{"default blacklist allows", configs.Send{}, "10001", true},
		{"blacklisted caller denied", configs.Send{PermissionMode: "blacklist", PermissionList: []string{"10001"}}, "10001", false},
		{"whitelisted caller allowed", configs.Send{PermissionMode: "whitelist", PermissionList: []string{"10001"}}, "10001", true},
		{"unlisted caller denied in whitelist", configs.Send{PermissionMode: "whitelist", PermissionList: []string{"10001"}}, "10002", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestCommands(&fakeFeed{}, &fakeGenerator{fallback: "x"}, nil, &fakeChatLog{}, &fakeDiaryStore{}, tt.send, configs.Images{})
			_, err := service.Send(context.Background(), tt.caller, "")
			if tt.allowed && err != nil {
				t.Fatalf("Send: %v", err)
			}
			if !tt.allowed && !errors.Is(err, ErrPermissionDenied) {
				t.Fatalf("err = %v, want ErrPermissionDenied", err)
			}
		})
	}
}

func TestSendIncludesHistory(t *testing.T) {
	feed := &fakeFeed{ownPosts: []domain.Post{
		{ID: "p1", Content: "yesterday I baked bread"},
		{ID: "p2", Content: "rainy morning thoughts"},
	}}
	gen := &fakeGenerator{fallback: "something new"}
	service := newTestCommands(feed, gen, nil, &fakeChatLog{}, &fakeDiaryStore{}, configs.Send{HistoryNumber: 5}, configs.Images{})

	if _, err := service.Send(context.Background(), "10001", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	prompt := gen.prompts[len(gen.prompts)-1]
	if !strings.Contains(prompt, "baked bread") || !strings.Contains(prompt, "rainy morning") {
		t.Fatalf("history missing from prompt:\n%s", prompt)
	}
}

func TestSendCustom(t *testing.T) {
	feed := &fakeFeed{}
	chatLog := &fakeChatLog{private: &domain.ChatMessage{Sender: "me", Text: "post this verbatim"}}
	service := newTestCommands(feed, &fakeGenerator{}, nil, chatLog, &fakeDiaryStore{},
		configs.Send{CustomAccount: "67890"}, configs.Images{})

	if _, err := service.SendCustom(context.Background(), "10001"); err != nil {
		t.Fatalf("SendCustom: %v", err)
	}
	if len(feed.published) != 1 || feed.published[0] != "post this verbatim" {
		t.Fatalf("published = %v, want the chat message verbatim", feed.published)
	}
}

func TestSendCustomNoMessage(t *testing.T) {
	service := newTestCommands(&fakeFeed{}, &fakeGenerator{}, nil, &fakeChatLog{}, &fakeDiaryStore{},
		configs.Send{CustomAccount: "67890"}, configs.Images{})

	_, err := service.SendCustom(context.Background(), "10001")
	if !errors.Is(err, domain.ErrInsufficientData) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
}

func TestSendCustomUnconfigured(t *testing.T) {
	service := newTestCommands(&fakeFeed{}, &fakeGenerator{}, nil, &fakeChatLog{}, &fakeDiaryStore{}, configs.Send{}, configs.Images{})
	if _, err := service.SendCustom(context.Background(), "10001"); err == nil {
		t.Fatal("missing custom account must error")
	}
}

func TestSendWithAIImages(t *testing.T) {
	feed := &fakeFeed{}
	images := &fakeImages{}
	service := newTestCommands(feed, &fakeGenerator{fallback: "text"}, images, &fakeChatLog{}, &fakeDiaryStore{},
		configs.Send{}, configs.Images{Enabled: true, Mode: "only_ai", Number: 2})

	if _, err := service.Send(context.Background(), "10001", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if images.calls != 2 {
		t.Fatalf("image generations = %d, want 2", images.calls)
	}
	if len(feed.images[0]) != 2 {
		t.Fatalf("attached images = %d, want 2", len(feed.images[0]))
	}
}

func TestSendImageFailureDegradesToText(t *testing.T) {
	feed := &fakeFeed{}
	images := &fakeImages{err: errors.New("model offline")}
	service := newTestCommands(feed, &fakeGenerator{fallback: "text"}, images, &fakeChatLog{}, &fakeDiaryStore{},
		configs.Send{}, configs.Images{Enabled: true, Mode: "only_ai", Number: 1})

	if _, err := service.Send(context.Background(), "10001", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(feed.published) != 1 {
		t.Fatal("post must still be published")
	}
	if len(feed.images[0]) != 0 {
		t.Fatalf("attached images = %d, want 0", len(feed.images[0]))
	}
}

func TestSendEmojiModePostsTextOnly(t *testing.T) {
	feed := &fakeFeed{}
	images := &fakeImages{}
	service := newTestCommands(feed, &fakeGenerator{fallback: "text"}, images, &fakeChatLog{}, &fakeDiaryStore{},
		configs.Send{}, configs.Images{Enabled: true, Mode: "only_emoji", Number: 2})

	if _, err := service.Send(context.Background(), "10001", ""); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if images.calls != 0 {
		t.Fatalf("emoji mode generated %d AI images", images.calls)
	}
}

func TestDiaryCommands(t *testing.T) {
	store := &fakeDiaryStore{}
	chatLog := &fakeChatLog{messages: diaryMessages("2026-03-01", 5)}
	service := newTestCommands(&fakeFeed{}, &fakeGenerator{fallback: "dear diary"}, nil, chatLog, store,
		configs.Send{}, configs.Images{})

	entry, err := service.DiaryGenerate(context.Background(), "10001", "2026-03-01")
	if err != nil {
		t.Fatalf("DiaryGenerate: %v", err)
	}
	if entry.Seq != 1 {
		t.Fatalf("seq = %d, want 1", entry.Seq)
	}
	if _, err := service.DiaryGenerate(context.Background(), "10001", "2026-03-01"); err != nil {
		t.Fatalf("second DiaryGenerate: %v", err)
	}

	listing, err := service.DiaryList(context.Background(), "10001")
	if err != nil {
		t.Fatalf("DiaryList: %v", err)
	}
	if !strings.Contains(listing, "2026-03-01") || !strings.Contains(listing, "total 2 entries") {
		t.Fatalf("listing = %q", listing)
	}

	// Index 0 resolves to the newest entry of the date.
	got, err := service.DiaryView(context.Background(), "2026-03-01", 0)
	if err != nil {
		t.Fatalf("DiaryView: %v", err)
	}
	if got.Seq != 2 {
		t.Fatalf("newest seq = %d, want 2", got.Seq)
	}

	got, err = service.DiaryView(context.Background(), "2026-03-01", 1)
	if err != nil {
		t.Fatalf("DiaryView seq 1: %v", err)
	}
	if got.Seq != 1 {
		t.Fatalf("seq = %d, want 1", got.Seq)
	}

	if _, err := service.DiaryView(context.Background(), "2026-03-01", 9); err == nil {
		t.Fatal("unknown sequence must error")
	}
	if _, err := service.DiaryView(context.Background(), "2026-01-01", 0); err == nil {
		t.Fatal("date without entries must error")
	}
}

func TestDiaryGenerateRelativeDate(t *testing.T) {
	store := &fakeDiaryStore{}
	chatLog := &fakeChatLog{messages: diaryMessages("2026-03-01", 5)}
	service := newTestCommands(&fakeFeed{}, &fakeGenerator{fallback: "dear diary"}, nil, chatLog, store,
		configs.Send{}, configs.Images{})

	// service.now is 2026-03-02, so "yesterday" resolves to 2026-03-01.
	entry, err := service.DiaryGenerate(context.Background(), "10001", "yesterday")
	if err != nil {
		t.Fatalf("DiaryGenerate: %v", err)
	}
	if entry.Date != "2026-03-01" {
		t.Fatalf("date = %s, want 2026-03-01", entry.Date)
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("short", 10); got != "short" {
		t.Fatalf("summarize = %q", got)
	}
	if got := summarize("line one\nline two", 40); got != "line one line two" {
		t.Fatalf("summarize = %q", got)
	}
	long := strings.Repeat("x", 50)
	if got := summarize(long, 10); got != strings.Repeat("x", 10)+"..." {
		t.Fatalf("summarize = %q", got)
	}
}
