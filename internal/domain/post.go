package domain

import "time"

// Post represents one feed entry as fetched from the platform.
// Identity is the platform-assigned ID; a Post is immutable once parsed.
type Post struct {
	ID         string
	AuthorID   string
	AuthorName string
	Content    string
	CreatedAt  time.Time
	Images     []string
	Videos     []string
	// Repost carries the abbreviated content of the original post when this
	// entry is a share. Empty for plain posts.
	Repost   string
	Comments []Comment
}

// IsRepost reports whether the post is a share of another post.
func (p *Post) IsRepost() bool {
	return p.Repost != ""
}

// Comment represents a comment on a post. Threads are shallow: a comment
// either sits directly under the post or replies to one other comment,
// never deeper.
type Comment struct {
	ID         string
	PostID     string
	AuthorID   string
	AuthorName string
	Content    string
	CreatedAt  time.Time
	// ReplyToID is the ID of the parent comment when this comment is a
	// sub-reply, empty otherwise.
	ReplyToID string
}

// IsReply reports whether the comment targets another comment.
func (c *Comment) IsReply() bool {
	return c.ReplyToID != ""
}

// InteractionDecision is the ephemeral per-post outcome of the policy and
// probability gates. It is recomputed every cycle and never persisted.
type InteractionDecision struct {
	ShouldLike    bool
	ShouldComment bool
	ReplyTargets  []Comment
}
