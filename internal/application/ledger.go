package application

import (
	"fmt"
	"sync"

	"qzone-agent/internal/domain"
	"qzone-agent/internal/ports/output"
)

// Ledger struct - The dedup memory of the agent: which posts and comments
// have already been handled. Both sets are bounded recency sets, so memory
// and the persisted file stay flat indefinitely; every mutation is persisted
// before the caller acts on it.
type Ledger struct {
	mu       sync.Mutex
	posts    *domain.RecencySet
	comments *domain.RecencySet
	store    output.LedgerStore
}

// NewLedger func - Creates a ledger with the given per-set capacity and
// loads the persisted state, so a restart does not re-trigger handled items.
func NewLedger(capacity int, store output.LedgerStore) (*Ledger, error) {
	ledger := &Ledger{
		posts:    domain.NewRecencySet(capacity),
		comments: domain.NewRecencySet(capacity),
		store:    store,
	}

	state, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("loading ledger state: %w", err)
	}
	ledger.posts.Restore(state.Posts)
	ledger.comments.Restore(state.Comments)

	return ledger, nil
}

// MarkPostIfNew atomically checks and marks a post id. It returns true when
// the id was new, i.e. the caller owns processing it. The mark is persisted
// before returning; a persist failure leaves the set unmarked and surfaces
// domain.ErrStatePersist.
func (l *Ledger) MarkPostIfNew(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.markIfNew(l.posts, id)
}

// MarkCommentIfNew is MarkPostIfNew for the comment set.
func (l *Ledger) MarkCommentIfNew(id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.markIfNew(l.comments, id)
}

// SeenPost reports whether a post id is already handled, without marking.
func (l *Ledger) SeenPost(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.posts.Contains(id)
}

// SeenComment reports whether a comment id is already handled, without
// marking.
func (l *Ledger) SeenComment(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.comments.Contains(id)
}

// MarkPost records a post id as handled unconditionally.
func (l *Ledger) MarkPost(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.markIfNew(l.posts, id)
	return err
}

// MarkComment records a comment id as handled unconditionally.
func (l *Ledger) MarkComment(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.markIfNew(l.comments, id)
	return err
}

// markIfNew mutates set under the held lock and persists. On persist failure
// the in-memory mark is rolled back by restoring the snapshot taken before
// the mutation.
func (l *Ledger) markIfNew(set *domain.RecencySet, id string) (bool, error) {
	if set.Contains(id) {
		return false, nil
	}

	before := set.Snapshot()
	set.Add(id)

	if err := l.persist(); err != nil {
		set.Restore(before)
		return false, fmt.Errorf("%w: %v", domain.ErrStatePersist, err)
	}
	return true, nil
}

func (l *Ledger) persist() error {
	return l.store.Save(&output.LedgerState{
		Posts:    l.posts.Snapshot(),
		Comments: l.comments.Snapshot(),
	})
}
