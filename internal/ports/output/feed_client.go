package output

import (
	"context"

	"qzone-agent/internal/domain"
)

// FeedClient interface - Output port
// Defines what the application needs from the social platform. Every call
// attaches the current session; implementations return
// domain.ErrUnauthenticated when the platform rejects it so callers can
// re-acquire without losing the pending work item, and domain.ErrTransient
// after bounded network retries are exhausted.
type FeedClient interface {
	// FetchFeed returns the newest posts of targetID, newest first. Items
	// that fail to parse are skipped, not fatal to the batch.
	FetchFeed(ctx context.Context, targetID string, count int) ([]domain.Post, error)

	// FetchOwnRecent returns the bot's own newest posts including their
	// comment threads, for reply monitoring.
	FetchOwnRecent(ctx context.Context, count int) ([]domain.Post, error)

	// Like likes a post owned by ownerID.
	Like(ctx context.Context, ownerID, postID string) error

	// Comment leaves a top-level comment on a post.
	Comment(ctx context.Context, ownerID, postID, text string) error

	// Reply answers a specific comment. Replies are flat and
	// mention-addressed; the platform's native sub-reply nesting is not used.
	Reply(ctx context.Context, ownerID, postID, commentID, nickname, text string) error

	// Publish creates a new post under the bot's own account, optionally
	// with image attachments. Returns the new post ID.
	Publish(ctx context.Context, text string, images [][]byte) (string, error)
}
