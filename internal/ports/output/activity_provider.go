package output

import (
	"context"

	"qzone-agent/internal/domain"
)

// ActivityProvider interface - Output port
// The planning collaborator that knows what the persona is doing right now.
// Returning (nil, nil) means no current activity is planned.
type ActivityProvider interface {
	CurrentActivity(ctx context.Context) (*domain.Activity, error)
}
