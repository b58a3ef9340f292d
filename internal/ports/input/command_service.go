package input

import (
	"context"

	"qzone-agent/internal/domain"
)

// CommandService interface - Input port (use cases)
// Operations exposed to command dispatchers (the HTTP admin API here; a chat
// command parser in the original). Each returns a short user-facing result
// string; errors carry user-facing text as well.
type CommandService interface {
	// Send generates and publishes a post on the given topic on behalf of
	// callerID. An empty topic lets the generator pick freely.
	Send(ctx context.Context, callerID, topic string) (string, error)

	// SendCustom publishes the latest configured private-chat message as a
	// post.
	SendCustom(ctx context.Context, callerID string) (string, error)

	// DiaryGenerate builds a diary for date (empty = today) and stores it.
	DiaryGenerate(ctx context.Context, callerID, date string) (*domain.DiaryEntry, error)

	// DiaryList returns a short textual listing of recent entries.
	DiaryList(ctx context.Context, callerID string) (string, error)

	// DiaryView returns one stored entry; index 0 means the newest entry of
	// the date, otherwise it is the 1-based sequence number.
	DiaryView(ctx context.Context, date string, index int) (*domain.DiaryEntry, error)
}
