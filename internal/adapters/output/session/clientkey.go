package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

// Compile-time check to ensure ClientKeySource implements the output port
var _ output.SessionSource = (*ClientKeySource)(nil)

// ClientKeySource struct - Two-step acquisition: fetch the account's
// clientkey from the Napcat gateway, then redeem it against the platform
// login jump endpoint and harvest the cookies set along the redirect chain.
type ClientKeySource struct {
	httpClient *http.Client
	baseURL    string
	token      string
	uin        string
	jumpURL    string
}

// NewClientKeySource func - Creates a clientkey cookie source. uin is the
// bare account number the key belongs to.
func NewClientKeySource(baseURL, token, uin string) *ClientKeySource {
	return &ClientKeySource{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		uin:        uin,
		jumpURL:    "https://ssl.ptlogin2.qq.com/jump",
	}
}

// Name returns the method tag recorded on sessions this source produces.
func (s *ClientKeySource) Name() string { return "clientkey" }

type clientKeyResponse struct {
	Retcode int `json:"retcode"`
	Data    struct {
		ClientKey string `json:"clientkey"`
	} `json:"data"`
}

// TryAcquire fetches the clientkey and redeems it. A gateway that has no key
// for the account yields (nil, nil) so the chain moves on.
func (s *ClientKeySource) TryAcquire(ctx context.Context) (*domain.Session, error) {
	if s.baseURL == "" || s.uin == "" {
		return nil, nil
	}

	key, err := s.fetchClientKey(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}
	return s.redeem(ctx, key)
}

func (s *ClientKeySource) fetchClientKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/get_clientkey", nil)
	if err != nil {
		return "", fmt.Errorf("creating get_clientkey request: %w", err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway get_clientkey: status %d", resp.StatusCode)
	}

	var payload clientKeyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decoding get_clientkey response: %v", domain.ErrParse, err)
	}
	if payload.Retcode != 0 {
		return "", nil
	}
	return payload.Data.ClientKey, nil
}

// redeem follows the login jump redirect chain with a fresh cookie jar and
// collects whatever the platform sets for the qzone domain.
func (s *ClientKeySource) redeem(ctx context.Context, key string) (*domain.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	client := &http.Client{Jar: jar, Timeout: 15 * time.Second}

	target := fmt.Sprintf("https://user.qzone.qq.com/%s/infocenter", s.uin)
	query := url.Values{
		"ptlang":    {"1033"},
		"clientuin": {s.uin},
		"clientkey": {key},
		"u1":        {target},
		"keyindex":  {"19"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.jumpURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating jump request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("redeeming clientkey: %w", err)
	}
	resp.Body.Close()

	cookies := harvestJar(jar, s.jumpURL, target)
	if len(cookies) == 0 {
		return nil, nil
	}
	return domain.NewSession(cookies, s.Name()), nil
}

// harvestJar flattens the cookies a login flow left in the jar for the given
// URLs plus the platform domains into one set. Later URLs win on name
// collisions.
func harvestJar(jar http.CookieJar, urls ...string) map[string]string {
	cookies := make(map[string]string)
	urls = append([]string{"https://qq.com", "https://qzone.qq.com", "https://user.qzone.qq.com"}, urls...)
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		for _, c := range jar.Cookies(u) {
			if c.Value != "" {
				cookies[c.Name] = c.Value
			}
		}
	}
	return cookies
}
