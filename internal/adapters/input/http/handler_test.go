package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qzone-agent/internal/application"
	"qzone-agent/internal/domain"

	"github.com/gofiber/fiber/v2"
)

type stubCommands struct {
	sendErr  error
	diaryErr error
	entry    *domain.DiaryEntry
}

func (s *stubCommands) Send(_ context.Context, callerID, topic string) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return "tid-1", nil
}

func (s *stubCommands) SendCustom(context.Context, string) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return "tid-2", nil
}

func (s *stubCommands) DiaryGenerate(context.Context, string, string) (*domain.DiaryEntry, error) {
	if s.diaryErr != nil {
		return nil, s.diaryErr
	}
	return s.entry, nil
}

func (s *stubCommands) DiaryList(context.Context, string) (string, error) {
	return "2026-03-01 #1 [diary]  a quiet day", nil
}

func (s *stubCommands) DiaryView(_ context.Context, date string, index int) (*domain.DiaryEntry, error) {
	if s.entry == nil || s.entry.Date != date {
		return nil, fmt.Errorf("no diary for %s", date)
	}
	return s.entry, nil
}

func newTestApp(srv *stubCommands) *fiber.App {
	hdl := New(srv)
	app := fiber.New()
	app.Post("/v1/api/post", hdl.SendPost)
	app.Post("/v1/api/post/custom", hdl.SendCustomPost)
	app.Post("/v1/api/diary", hdl.GenerateDiary)
	app.Get("/v1/api/diary", hdl.ListDiaries)
	app.Get("/v1/api/diary/:date", hdl.ViewDiary)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, ResponseBody) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response: %v", err)
	}
	var parsed ResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("parsing response %q: %v", raw, err)
	}
	return resp, parsed
}

func TestSendPost(t *testing.T) {
	app := newTestApp(&stubCommands{})

	resp, body := doJSON(t, app, "POST", "/v1/api/post", `{"caller_id":"10001","topic":"weather"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := body.Data.(map[string]interface{})
	if data["tid"] != "tid-1" {
		t.Fatalf("data = %v", body.Data)
	}
}

func TestSendPostMissingCaller(t *testing.T) {
	app := newTestApp(&stubCommands{})

	resp, _ := doJSON(t, app, "POST", "/v1/api/post", `{"topic":"weather"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSendPostPermissionDenied(t *testing.T) {
	app := newTestApp(&stubCommands{sendErr: application.ErrPermissionDenied})

	resp, _ := doJSON(t, app, "POST", "/v1/api/post", `{"caller_id":"10001"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestSendPostAuthExhausted(t *testing.T) {
	app := newTestApp(&stubCommands{sendErr: fmt.Errorf("%w: all sources exhausted", domain.ErrAuth)})

	resp, _ := doJSON(t, app, "POST", "/v1/api/post", `{"caller_id":"10001"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestGenerateDiaryInsufficientData(t *testing.T) {
	app := newTestApp(&stubCommands{diaryErr: fmt.Errorf("%w: 1 message, need 3", domain.ErrInsufficientData)})

	resp, _ := doJSON(t, app, "POST", "/v1/api/diary", `{"caller_id":"10001","date":"2026-03-01"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestViewDiary(t *testing.T) {
	entry := &domain.DiaryEntry{
		Date:        "2026-03-01",
		Seq:         1,
		Style:       domain.DiaryStyleJournal,
		Content:     "a quiet day",
		WordCount:   11,
		GeneratedAt: time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC),
	}
	app := newTestApp(&stubCommands{entry: entry})

	resp, body := doJSON(t, app, "GET", "/v1/api/diary/2026-03-01", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := body.Data.(map[string]interface{})
	if data["content"] != "a quiet day" {
		t.Fatalf("data = %v", body.Data)
	}

	resp, _ = doJSON(t, app, "GET", "/v1/api/diary/2026-01-01", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestViewDiaryBadIndex(t *testing.T) {
	app := newTestApp(&stubCommands{})

	resp, _ := doJSON(t, app, "GET", "/v1/api/diary/2026-03-01?index=x", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestListDiariesRequiresCaller(t *testing.T) {
	app := newTestApp(&stubCommands{})

	resp, _ := doJSON(t, app, "GET", "/v1/api/diary", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
