package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

// Compile-time check to ensure NapcatSource implements the output port
var _ output.SessionSource = (*NapcatSource)(nil)

// qzoneCookieDomain is the cookie scope the gateway is asked for.
const qzoneCookieDomain = "user.qzone.qq.com"

// NapcatSource struct - Acquires cookies from a Napcat gateway's get_cookies
// endpoint. This is the cheapest source and runs first in the default chain.
type NapcatSource struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewNapcatSource func - Creates a Napcat cookie source for the given gateway.
func NewNapcatSource(baseURL, token string) *NapcatSource {
	return &NapcatSource{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
	}
}

// Name returns the method tag recorded on sessions this source produces.
func (s *NapcatSource) Name() string { return "napcat" }

type napcatResponse struct {
	Status  string `json:"status"`
	Retcode int    `json:"retcode"`
	Message string `json:"message"`
	Data    struct {
		Cookies string `json:"cookies"`
	} `json:"data"`
}

// TryAcquire asks the gateway for the qzone cookie string and splits it into
// a cookie set.
func (s *NapcatSource) TryAcquire(ctx context.Context) (*domain.Session, error) {
	if s.baseURL == "" {
		return nil, nil
	}

	url := fmt.Sprintf("%s/get_cookies?domain=%s", s.baseURL, qzoneCookieDomain)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating get_cookies request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gateway get_cookies: status %d - %s", resp.StatusCode, string(body))
	}

	var payload napcatResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding get_cookies response: %v", domain.ErrParse, err)
	}
	if payload.Retcode != 0 {
		return nil, fmt.Errorf("gateway get_cookies: retcode %d - %s", payload.Retcode, payload.Message)
	}

	cookies := parseCookieString(payload.Data.Cookies)
	if len(cookies) == 0 {
		return nil, nil
	}
	return domain.NewSession(cookies, s.Name()), nil
}

// parseCookieString splits a "k=v; k=v" cookie header value into a map.
// Malformed segments are skipped.
func parseCookieString(raw string) map[string]string {
	cookies := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found || name == "" {
			continue
		}
		cookies[name] = value
	}
	return cookies
}
