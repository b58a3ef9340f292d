package qzone

import (
	"fmt"
	"strings"
	"time"

	"qzone-agent/internal/domain"
)

// Raw wire structs for the platform's JSONP payloads. Field sets are the
// subset the agent reads; unknown fields are ignored on decode.

type feedListResponse struct {
	Code    int       `json:"code"`
	Subcode int       `json:"subcode"`
	Message string    `json:"message"`
	MsgList []rawFeed `json:"msglist"`
	Total   int       `json:"total"`
}

type rawFeed struct {
	Tid         string       `json:"tid"`
	Uin         int64        `json:"uin"`
	Name        string       `json:"name"`
	Content     string       `json:"content"`
	CreatedTime int64        `json:"created_time"`
	RtCon       *rawRepost   `json:"rt_con"`
	RtUin       int64        `json:"rt_uin"`
	RtUinName   string       `json:"rt_uinname"`
	Pic         []rawPicture `json:"pic"`
	Video       []rawVideo   `json:"video"`
	CommentList []rawComment `json:"commentlist"`
}

type rawRepost struct {
	Content string `json:"content"`
}

type rawPicture struct {
	URL1 string `json:"url1"`
	URL2 string `json:"url2"`
	URL3 string `json:"url3"`
}

type rawVideo struct {
	URL3 string `json:"url3"`
}

type rawComment struct {
	Tid        int64  `json:"tid"`
	Uin        int64  `json:"uin"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	CreateTime int64  `json:"create_time"`
	ParentTid  int64  `json:"parent_tid"`
}

type publishResponse struct {
	Code    int    `json:"code"`
	Subcode int    `json:"subcode"`
	Message string `json:"message"`
	Tid     string `json:"tid"`
}

type actionResponse struct {
	Code    int    `json:"code"`
	Subcode int    `json:"subcode"`
	Message string `json:"message"`
}

type uploadResponse struct {
	Ret  int    `json:"ret"`
	Msg  string `json:"msg"`
	Data struct {
		URL     string `json:"url"`
		AlbumID string `json:"albumid"`
		LLoc    string `json:"lloc"`
		SLoc    string `json:"sloc"`
		Type    int    `json:"type"`
		Height  int    `json:"height"`
		Width   int    `json:"width"`
	} `json:"data"`
}

// toPost maps one raw feed item to the domain shape. An item without a tid
// is unusable and reported as a parse failure.
func (f *rawFeed) toPost() (domain.Post, error) {
	if f.Tid == "" {
		return domain.Post{}, fmt.Errorf("%w: feed item without tid", domain.ErrParse)
	}

	post := domain.Post{
		ID:         f.Tid,
		AuthorID:   fmt.Sprintf("%d", f.Uin),
		AuthorName: f.Name,
		Content:    f.Content,
		CreatedAt:  time.Unix(f.CreatedTime, 0),
	}
	if f.RtCon != nil {
		post.Repost = strings.TrimSpace(f.RtCon.Content)
	}
	for _, pic := range f.Pic {
		if url := pic.bestURL(); url != "" {
			post.Images = append(post.Images, url)
		}
	}
	for _, video := range f.Video {
		if video.URL3 != "" {
			post.Videos = append(post.Videos, video.URL3)
		}
	}
	for _, c := range f.CommentList {
		post.Comments = append(post.Comments, domain.Comment{
			ID:         fmt.Sprintf("%d", c.Tid),
			PostID:     post.ID,
			AuthorID:   fmt.Sprintf("%d", c.Uin),
			AuthorName: c.Name,
			Content:    c.Content,
			CreatedAt:  time.Unix(c.CreateTime, 0),
			ReplyToID:  replyTo(c.ParentTid),
		})
	}
	return post, nil
}

func (p *rawPicture) bestURL() string {
	for _, url := range []string{p.URL1, p.URL2, p.URL3} {
		if url != "" {
			return url
		}
	}
	return ""
}

func replyTo(parentTid int64) string {
	if parentTid == 0 {
		return ""
	}
	return fmt.Sprintf("%d", parentTid)
}
