package session

import (
	"context"
	"fmt"
	"sync"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"

	"github.com/sirupsen/logrus"
)

// Compile-time check to ensure Manager implements the output port
var _ output.SessionManager = (*Manager)(nil)

// Manager struct - Runs the ordered cookie acquisition chain and caches the
// resulting session in memory. Sources are capability-equivalent; the first
// one that yields a structurally complete cookie set wins.
type Manager struct {
	sources []output.SessionSource
	cache   output.CookieCache

	mu      sync.Mutex
	current *domain.Session
}

// NewManager func - Creates a session manager over the configured source chain.
func NewManager(sources []output.SessionSource, cache output.CookieCache) *Manager {
	return &Manager{sources: sources, cache: cache}
}

// Acquire returns the cached session, or runs the source chain until one
// source produces a complete cookie set. All sources exhausted maps to
// domain.ErrAuth.
func (m *Manager) Acquire(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.Valid {
		return m.current, nil
	}

	for _, source := range m.sources {
		session, err := source.TryAcquire(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("cookie acquisition cancelled: %w", ctx.Err())
			}
			logrus.Warnf("Cookie source %s failed: %v", source.Name(), err)
			continue
		}
		if session == nil {
			logrus.Debugf("Cookie source %s has nothing, trying next", source.Name())
			continue
		}
		if !session.Complete() {
			logrus.Warnf("Cookie source %s returned an incomplete cookie set, trying next", source.Name())
			continue
		}

		logrus.Infof("Session acquired via %s for uin %s", session.Method, session.Uin())
		m.persist(session)
		m.current = session
		return session, nil
	}

	return nil, fmt.Errorf("%w: all %d cookie sources exhausted", domain.ErrAuth, len(m.sources))
}

// Invalidate purges the cached session after the platform rejected it. The
// next Acquire re-runs the chain.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		logrus.Infof("Invalidating session acquired via %s", m.current.Method)
	}
	m.current = nil
}

// persist writes the last-good cookie set for the local fallback source.
// Failure to persist is logged, not fatal: the session itself is still good.
func (m *Manager) persist(session *domain.Session) {
	if m.cache == nil || session.Method == "local" {
		return
	}
	if err := m.cache.Save(session.Cookies); err != nil {
		logrus.Warnf("Failed to persist cookie set: %v", err)
	}
}
