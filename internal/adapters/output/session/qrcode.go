package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure QRCodeSource implements the output port
var _ output.SessionSource = (*QRCodeSource)(nil)

// Login endpoint identifiers for the qzone web application.
const (
	qrAppID = "549000912"
	qrDaID  = "5"
)

// QRCodeSource struct - Interactive acquisition: fetch a login QR image,
// write it where the operator can see it, and poll the login status until
// the scan completes or the wait deadline passes.
type QRCodeSource struct {
	stateDir     string
	pollInterval time.Duration
	waitLimit    time.Duration
	showURL      string
	pollURL      string
}

// NewQRCodeSource func - Creates a QR login source writing its image under
// stateDir. waitLimit bounds how long a single attempt blocks the chain.
func NewQRCodeSource(stateDir string, waitLimit time.Duration) *QRCodeSource {
	if waitLimit <= 0 {
		waitLimit = 2 * time.Minute
	}
	return &QRCodeSource{
		stateDir:     stateDir,
		pollInterval: 2 * time.Second,
		waitLimit:    waitLimit,
		showURL:      "https://ssl.ptlogin2.qq.com/ptqrshow",
		pollURL:      "https://ssl.ptlogin2.qq.com/ptqrlogin",
	}
}

// Name returns the method tag recorded on sessions this source produces.
func (s *QRCodeSource) Name() string { return "qrcode" }

// TryAcquire runs one QR login round trip. It honors ctx cancellation and
// gives up after the configured wait limit.
func (s *QRCodeSource) TryAcquire(ctx context.Context) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.waitLimit)
	defer cancel()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	client := &http.Client{Jar: jar, Timeout: 15 * time.Second}

	qrsig, err := s.fetchQR(ctx, client)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("qr login wait expired: %w", ctx.Err())
		case <-ticker.C:
		}

		redirect, status, err := s.poll(ctx, client, qrsig)
		if err != nil {
			return nil, err
		}
		switch status {
		case qrStatusDone:
			return s.finish(ctx, client, jar, redirect)
		case qrStatusExpired:
			return nil, fmt.Errorf("qr code expired before it was scanned")
		default:
			// Waiting for scan or confirmation.
		}
	}
}

// fetchQR downloads the QR image, writes it to disk and returns the qrsig
// cookie the poll endpoint signs against.
func (s *QRCodeSource) fetchQR(ctx context.Context, client *http.Client) (string, error) {
	query := url.Values{
		"appid":      {qrAppID},
		"daid":       {qrDaID},
		"e":          {"2"},
		"l":          {"M"},
		"s":          {"3"},
		"d":          {"72"},
		"v":          {"4"},
		"pt_3rd_aid": {"0"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.showURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("creating qr request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching qr image: %w", err)
	}
	defer resp.Body.Close()

	var qrsig string
	for _, c := range resp.Cookies() {
		if c.Name == "qrsig" {
			qrsig = c.Value
		}
	}
	if qrsig == "" {
		return "", fmt.Errorf("%w: qr endpoint set no qrsig cookie", domain.ErrParse)
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading qr image: %w", err)
	}
	path := filepath.Join(s.stateDir, "login_qr.png")
	if err := os.MkdirAll(s.stateDir, 0o755); err != nil {
		return "", fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return "", fmt.Errorf("writing qr image: %w", err)
	}
	logrus.Infof("Scan the login QR code at %s", path)

	return qrsig, nil
}

type qrStatus int

const (
	qrStatusWaiting qrStatus = iota
	qrStatusDone
	qrStatusExpired
)

// poll asks the login endpoint for the scan state. On success it returns the
// check_sig redirect URL that finalizes the cookie set.
func (s *QRCodeSource) poll(ctx context.Context, client *http.Client, qrsig string) (string, qrStatus, error) {
	query := url.Values{
		"ptqrtoken":  {fmt.Sprintf("%d", ptqrToken(qrsig))},
		"ptredirect": {"0"},
		"h":          {"1"},
		"t":          {"1"},
		"g":          {"1"},
		"from_ui":    {"1"},
		"ptlang":     {"2052"},
		"aid":        {qrAppID},
		"daid":       {qrDaID},
		"u1":         {"https://qzs.qq.com/qzone/v5/loginsucc.html?para=izone"},
		"action":     {fmt.Sprintf("0-0-%d", time.Now().UnixMilli())},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.pollURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", qrStatusWaiting, fmt.Errorf("creating poll request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", qrStatusWaiting, fmt.Errorf("polling qr status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", qrStatusWaiting, fmt.Errorf("reading poll response: %w", err)
	}

	fields := parsePtuiCB(string(body))
	if len(fields) < 3 {
		return "", qrStatusWaiting, fmt.Errorf("%w: unexpected poll response %q", domain.ErrParse, string(body))
	}
	switch fields[0] {
	case "0":
		return fields[2], qrStatusDone, nil
	case "65":
		return "", qrStatusExpired, nil
	default:
		return "", qrStatusWaiting, nil
	}
}

// finish follows the post-scan redirect so the platform sets the final
// cookie set into the jar.
func (s *QRCodeSource) finish(ctx context.Context, client *http.Client, jar http.CookieJar, redirect string) (*domain.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, redirect, nil)
	if err != nil {
		return nil, fmt.Errorf("creating check_sig request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("finalizing qr login: %w", err)
	}
	resp.Body.Close()

	cookies := harvestJar(jar, redirect)
	if len(cookies) == 0 {
		return nil, fmt.Errorf("qr login finished but set no cookies")
	}
	logrus.Info("QR login completed")
	return domain.NewSession(cookies, s.Name()), nil
}

// parsePtuiCB extracts the quoted arguments from a ptuiCB('a','b',...) body.
func parsePtuiCB(body string) []string {
	open := strings.Index(body, "(")
	end := strings.LastIndex(body, ")")
	if open < 0 || end <= open {
		return nil
	}
	args := strings.Split(body[open+1:end], ",")
	fields := make([]string, 0, len(args))
	for _, a := range args {
		fields = append(fields, strings.Trim(strings.TrimSpace(a), "'"))
	}
	return fields
}

// ptqrToken derives the poll token from the qrsig cookie with the platform's
// additive hash.
func ptqrToken(qrsig string) int {
	e := 0
	for _, r := range qrsig {
		e += (e << 5) + int(r)
	}
	return e & 0x7fffffff
}
