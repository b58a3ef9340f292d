package session

import (
	"context"
	"fmt"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

// Compile-time check to ensure LocalSource implements the output port
var _ output.SessionSource = (*LocalSource)(nil)

// LocalSource struct - Last-resort acquisition from the persisted cookie
// cache. The set may be stale; the caller finds out on first use.
type LocalSource struct {
	cache output.CookieCache
}

// NewLocalSource func - Creates a source reading the last-good cookie set.
func NewLocalSource(cache output.CookieCache) *LocalSource {
	return &LocalSource{cache: cache}
}

// Name returns the method tag recorded on sessions this source produces.
func (s *LocalSource) Name() string { return "local" }

// TryAcquire reads the cached cookie set. No cache on disk yields (nil, nil).
func (s *LocalSource) TryAcquire(_ context.Context) (*domain.Session, error) {
	cookies, err := s.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("reading cookie cache: %w", err)
	}
	if len(cookies) == 0 {
		return nil, nil
	}
	return domain.NewSession(cookies, s.Name()), nil
}
