package qzone

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure Client implements the output port
var _ output.FeedClient = (*Client)(nil)

// Platform endpoint paths, relative to the proxy base.
const (
	feedListPath = "/proxy/domain/taotao.qq.com/cgi-bin/emotion_cgi_msglist_v6"
	likePath     = "/proxy/domain/w.qzone.qq.com/cgi-bin/likes/internal_dolike_app"
	commentPath  = "/proxy/domain/taotao.qzone.qq.com/cgi-bin/emotion_cgi_re_feeds"
	publishPath  = "/proxy/domain/taotao.qzone.qq.com/cgi-bin/emotion_cgi_publish_v6"
	uploadPath   = "/proxy/domain/up.qzone.qq.com/cgi-bin/upload/cgi_upload_image"
)

// Retry configuration constants
const (
	maxAttempts  = 3
	initialDelay = 500 * time.Millisecond
	maxDelay     = 2 * time.Second
)

// Client struct - Output adapter for the qzone web endpoints. Each call
// attaches the current session's cookies and signing token; rejection
// markers map to domain.ErrUnauthenticated so the caller can invalidate and
// retry once, exhausted network retries map to domain.ErrTransient.
type Client struct {
	httpClient *http.Client
	sessions   output.SessionManager
	baseURL    string
}

// NewClient func - Creates a feed client over the given session manager.
func NewClient(sessions output.SessionManager) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		sessions:   sessions,
		baseURL:    "https://user.qzone.qq.com",
	}
}

// FetchFeed returns the newest posts of targetID, newest first. Items that
// fail to parse are logged and skipped.
func (c *Client) FetchFeed(ctx context.Context, targetID string, count int) ([]domain.Post, error) {
	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"uin":                  {targetID},
		"ftype":                {"0"},
		"sort":                 {"0"},
		"pos":                  {"0"},
		"num":                  {fmt.Sprintf("%d", count)},
		"replynum":             {"100"},
		"g_tk":                 {fmt.Sprintf("%d", session.GTk())},
		"callback":             {"_preloadCallback"},
		"code_version":         {"1"},
		"format":               {"jsonp"},
		"need_private_comment": {"1"},
	}

	body, err := c.get(ctx, session, feedListPath, query)
	if err != nil {
		return nil, err
	}

	var payload feedListResponse
	if err := json.Unmarshal(stripJSONP(body), &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding feed list: %v", domain.ErrParse, err)
	}
	if err := checkCode(payload.Code, payload.Subcode, payload.Message); err != nil {
		return nil, err
	}

	posts := make([]domain.Post, 0, len(payload.MsgList))
	for i := range payload.MsgList {
		post, err := payload.MsgList[i].toPost()
		if err != nil {
			logrus.Warnf("Skipping unparsable feed item %d of %s: %v", i, targetID, err)
			continue
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// FetchOwnRecent returns the bot's own newest posts with their comment
// threads, for reply monitoring.
func (c *Client) FetchOwnRecent(ctx context.Context, count int) ([]domain.Post, error) {
	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchFeed(ctx, session.Uin(), count)
}

// Like likes a post owned by ownerID.
func (c *Client) Like(ctx context.Context, ownerID, postID string) error {
	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		return err
	}

	unikey := fmt.Sprintf("http://user.qzone.qq.com/%s/mood/%s", ownerID, postID)
	form := url.Values{
		"qzreferrer": {fmt.Sprintf("https://user.qzone.qq.com/%s", session.Uin())},
		"opuin":      {session.Uin()},
		"unikey":     {unikey},
		"curkey":     {unikey},
		"appid":      {"311"},
		"from":       {"1"},
		"typeid":     {"0"},
		"fid":        {postID},
		"active":     {"0"},
		"fupdate":    {"1"},
	}

	body, err := c.post(ctx, session, likePath, form)
	if err != nil {
		return err
	}
	return checkActionBody(body)
}

// Comment leaves a top-level comment on a post.
func (c *Client) Comment(ctx context.Context, ownerID, postID, text string) error {
	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		return err
	}

	form := c.commentForm(session.Uin(), ownerID, postID, text)
	body, err := c.post(ctx, session, commentPath, form)
	if err != nil {
		return err
	}
	return checkActionBody(body)
}

// Reply answers a specific comment. The reply stays flat: it targets the
// post and addresses the commenter by mention instead of using the
// platform's nested sub-replies.
func (c *Client) Reply(ctx context.Context, ownerID, postID, commentID, nickname, text string) error {
	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		return err
	}

	mention := fmt.Sprintf("@%s %s", nickname, text)
	form := c.commentForm(session.Uin(), ownerID, postID, mention)
	form.Set("commentId", commentID)

	body, err := c.post(ctx, session, commentPath, form)
	if err != nil {
		return err
	}
	return checkActionBody(body)
}

// Publish creates a new post under the bot's own account. Images are
// uploaded first and attached through the rich-content fields.
func (c *Client) Publish(ctx context.Context, text string, images [][]byte) (string, error) {
	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		return "", err
	}

	form := url.Values{
		"syn_tweet_verson": {"1"},
		"paramstr":         {"1"},
		"con":              {text},
		"feedversion":      {"1"},
		"ver":              {"1"},
		"ugc_right":        {"64"},
		"to_sign":          {"1"},
		"hostuin":          {session.Uin()},
		"code_version":     {"1"},
		"format":           {"json"},
	}

	if len(images) > 0 {
		richval, picBo, err := c.uploadImages(ctx, session, images)
		if err != nil {
			return "", err
		}
		form.Set("richtype", "1")
		form.Set("richval", richval)
		form.Set("pic_bo", picBo)
	}

	body, err := c.post(ctx, session, publishPath, form)
	if err != nil {
		return "", err
	}

	var payload publishResponse
	if err := json.Unmarshal(stripJSONP(body), &payload); err != nil {
		return "", fmt.Errorf("%w: decoding publish response: %v", domain.ErrParse, err)
	}
	if err := checkCode(payload.Code, payload.Subcode, payload.Message); err != nil {
		return "", err
	}
	if payload.Tid == "" {
		return "", fmt.Errorf("%w: publish response without tid", domain.ErrParse)
	}
	return payload.Tid, nil
}

// commentForm builds the shared form for comments and replies.
func (c *Client) commentForm(selfUin, ownerID, postID, content string) url.Values {
	return url.Values{
		"topicId":    {fmt.Sprintf("%s_%s__1", ownerID, postID)},
		"feedsType":  {"100"},
		"inCharset":  {"utf-8"},
		"outCharset": {"utf-8"},
		"plat":       {"qzone"},
		"source":     {"ic"},
		"hostUin":    {ownerID},
		"uin":        {selfUin},
		"format":     {"fs"},
		"ref":        {"feeds"},
		"content":    {content},
	}
}

// uploadImages uploads every attachment and assembles the richval / pic_bo
// pair the publish endpoint wants.
func (c *Client) uploadImages(ctx context.Context, session *domain.Session, images [][]byte) (string, string, error) {
	var richvals, picBos []string
	for i, image := range images {
		upload, err := c.uploadImage(ctx, session, image)
		if err != nil {
			return "", "", fmt.Errorf("uploading image %d: %w", i, err)
		}
		richvals = append(richvals, fmt.Sprintf(",%s,%s,%s,%d,%d,%d,,%d,%d",
			upload.Data.AlbumID, upload.Data.LLoc, upload.Data.SLoc,
			upload.Data.Type, upload.Data.Height, upload.Data.Width,
			upload.Data.Height, upload.Data.Width))

		bo := upload.Data.URL
		if idx := strings.Index(bo, "&bo="); idx >= 0 {
			bo = bo[idx+4:]
		}
		picBos = append(picBos, bo)
	}
	return strings.Join(richvals, "\t"), strings.Join(picBos, ","), nil
}

func (c *Client) uploadImage(ctx context.Context, session *domain.Session, image []byte) (*uploadResponse, error) {
	form := url.Values{
		"filename":     {"filename"},
		"uin":          {session.Uin()},
		"skey":         {session.Cookies["skey"]},
		"p_uin":        {session.Uin()},
		"p_skey":       {session.Cookies["p_skey"]},
		"zzpanelkey":   {""},
		"zzpaneluin":   {session.Uin()},
		"uploadtype":   {"1"},
		"albumtype":    {"7"},
		"exttype":      {"0"},
		"refer":        {"shuoshuo"},
		"output_type":  {"json"},
		"charset":      {"utf-8"},
		"output_charset": {"utf-8"},
		"upload_hd":    {"1"},
		"hd_width":     {"2048"},
		"hd_height":    {"10000"},
		"hd_quality":   {"96"},
		"url":          {fmt.Sprintf("https://up.qzone.qq.com/cgi-bin/upload/cgi_upload_image?g_tk=%d", session.GTk())},
		"base64":       {"1"},
		"picfile":      {base64.StdEncoding.EncodeToString(image)},
	}

	body, err := c.post(ctx, session, uploadPath, form)
	if err != nil {
		return nil, err
	}

	var payload uploadResponse
	if err := json.Unmarshal(extractBraces(body), &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding upload response: %v", domain.ErrParse, err)
	}
	if payload.Ret != 0 {
		return nil, fmt.Errorf("image upload rejected: ret %d - %s", payload.Ret, payload.Msg)
	}
	return &payload, nil
}

// get runs a signed GET with bounded retries.
func (c *Client) get(ctx context.Context, session *domain.Session, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, session, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	})
}

// post runs a signed form POST with bounded retries. The signing token rides
// the query string like the web client does.
func (c *Client) post(ctx context.Context, session *domain.Session, path string, form url.Values) ([]byte, error) {
	target := fmt.Sprintf("%s%s?g_tk=%d", c.baseURL, path, session.GTk())
	return c.do(ctx, session, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
}

// do executes the request with the session's cookies attached, retrying
// network failures and 5xx with short backoff. 401/403 and login-page bodies
// map to domain.ErrUnauthenticated without retrying.
func (c *Client) do(ctx context.Context, session *domain.Session, build func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		attachSession(req, session)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			logrus.Warnf("Platform request attempt %d/%d failed: %v", attempt, maxAttempts, err)
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
				return nil, fmt.Errorf("%w: status %d", domain.ErrUnauthenticated, resp.StatusCode)
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("status %d", resp.StatusCode)
				logrus.Warnf("Platform request attempt %d/%d failed with status %d", attempt, maxAttempts, resp.StatusCode)
			case resp.StatusCode >= 400:
				return nil, fmt.Errorf("platform rejected request: status %d - %s", resp.StatusCode, truncate(body))
			case readErr != nil:
				lastErr = readErr
				logrus.Warnf("Platform request attempt %d/%d body read failed: %v", attempt, maxAttempts, readErr)
			default:
				if isLoginPage(body) {
					return nil, fmt.Errorf("%w: session rejected by platform", domain.ErrUnauthenticated)
				}
				return body, nil
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}
	}

	return nil, fmt.Errorf("%w: %v after %d attempts", domain.ErrTransient, lastErr, maxAttempts)
}

// attachSession sets the cookie header and a browser-shaped user agent.
func attachSession(req *http.Request, session *domain.Session) {
	pairs := make([]string, 0, len(session.Cookies))
	for name, value := range session.Cookies {
		pairs = append(pairs, name+"="+value)
	}
	req.Header.Set("Cookie", strings.Join(pairs, "; "))
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36")
	req.Header.Set("Referer", "https://user.qzone.qq.com/")
}

// checkCode maps the platform's payload-level status to domain errors.
// Subcode -3000 is the platform's "not logged in".
func checkCode(code, subcode int, message string) error {
	if code == 0 && subcode == 0 {
		return nil
	}
	if subcode == -3000 || code == -3000 {
		return fmt.Errorf("%w: code %d subcode %d - %s", domain.ErrUnauthenticated, code, subcode, message)
	}
	return fmt.Errorf("platform error: code %d subcode %d - %s", code, subcode, message)
}

// checkActionBody validates the like/comment/reply responses, which come
// back as a script fragment wrapping a JSON object.
func checkActionBody(body []byte) error {
	extracted := extractBraces(body)
	if len(extracted) == 0 {
		// Some action endpoints answer with a bare success page.
		return nil
	}
	var payload actionResponse
	if err := json.Unmarshal(extracted, &payload); err != nil {
		return fmt.Errorf("%w: decoding action response: %v", domain.ErrParse, err)
	}
	return checkCode(payload.Code, payload.Subcode, payload.Message)
}

// stripJSONP removes the callback wrapper from a `cb({...});` payload. A
// payload without a wrapper passes through unchanged.
func stripJSONP(body []byte) []byte {
	if extracted := extractBraces(body); len(extracted) > 0 {
		return extracted
	}
	return body
}

// extractBraces returns the outermost {...} slice of body, or nil.
func extractBraces(body []byte) []byte {
	s := string(body)
	open := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if open < 0 || end <= open {
		return nil
	}
	return body[open : end+1]
}

// isLoginPage detects the HTML login redirect the platform serves instead of
// data when the cookie set has expired.
func isLoginPage(body []byte) bool {
	s := string(body)
	return strings.Contains(s, "ptlogin2.qq.com") || strings.Contains(s, "请先登录")
}

func truncate(body []byte) string {
	const limit = 200
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
