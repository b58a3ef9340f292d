package output

import (
	"context"

	"qzone-agent/internal/domain"
)

// SessionSource interface - Output port
// One cookie acquisition strategy. Sources are capability-equivalent and
// tried in configured order; returning (nil, nil) means "this source has
// nothing", which moves the chain to the next source.
type SessionSource interface {
	// Name returns the method tag recorded on sessions this source produces.
	Name() string

	// TryAcquire attempts to obtain a cookie set. Sources that wait on
	// external human action (QR scan) must honor ctx cancellation and bound
	// their own wait.
	TryAcquire(ctx context.Context) (*domain.Session, error)
}

// SessionManager interface - Output port
// The single "get valid session" operation the rest of the agent uses.
type SessionManager interface {
	// Acquire returns the cached session or runs the source chain. All
	// sources exhausted maps to domain.ErrAuth.
	Acquire(ctx context.Context) (*domain.Session, error)

	// Invalidate purges the cached session after the platform rejected it.
	// The next Acquire re-runs the chain once.
	Invalidate()
}
