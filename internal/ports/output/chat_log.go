package output

import (
	"context"
	"time"

	"qzone-agent/internal/domain"
)

// ChatFilter narrows which conversations contribute messages.
type ChatFilter struct {
	// Mode is "all", "whitelist" or "blacklist" over Chats.
	Mode string
	// Chats are conversation identifiers, e.g. "group:12345" or
	// "private:67890".
	Chats []string
}

// ChatLogStore interface - Output port
// The chat history the diary is written from. Messages come back ordered by
// timestamp ascending.
type ChatLogStore interface {
	MessagesBetween(ctx context.Context, start, end time.Time, filter ChatFilter) ([]domain.ChatMessage, error)

	// LatestPrivate returns the newest non-command message of the private
	// conversation with peerID. fromSelf selects the bot's own messages
	// instead of the peer's. Used by the custom-post command.
	LatestPrivate(ctx context.Context, peerID string, fromSelf bool) (*domain.ChatMessage, error)
}

// ImpressionStore interface - Output port
// Per-author impression summaries injected into comment and reply prompts.
type ImpressionStore interface {
	// Impression returns the stored summary for userID, or a neutral
	// placeholder when none exists.
	Impression(userID string) string
}
