package domain

// RecencySet is a fixed-capacity set that remembers insertion order. Once
// size exceeds capacity the oldest entries are evicted, which bounds both
// memory and the persisted file indefinitely. Re-processing an ID that
// scrolled out of the window is an accepted trade-off, not a bug.
//
// RecencySet is not goroutine-safe; the owning ledger serializes access.
type RecencySet struct {
	capacity int
	order    []string
	members  map[string]struct{}
}

// NewRecencySet creates a set holding at most capacity entries. A capacity
// below 1 is clamped to 1.
func NewRecencySet(capacity int) *RecencySet {
	if capacity < 1 {
		capacity = 1
	}
	return &RecencySet{
		capacity: capacity,
		members:  make(map[string]struct{}, capacity),
	}
}

// Contains reports membership in O(1).
func (s *RecencySet) Contains(id string) bool {
	_, ok := s.members[id]
	return ok
}

// Add appends id if absent, evicting the oldest surviving entries until the
// size is back at capacity. Re-adding a present id is a no-op.
func (s *RecencySet) Add(id string) {
	if s.Contains(id) {
		return
	}
	s.order = append(s.order, id)
	s.members[id] = struct{}{}
	for len(s.order) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.members, oldest)
	}
}

// Len returns the current number of entries.
func (s *RecencySet) Len() int {
	return len(s.order)
}

// Capacity returns the configured cap.
func (s *RecencySet) Capacity() int {
	return s.capacity
}

// Snapshot returns the entries oldest-first, for persistence.
func (s *RecencySet) Snapshot() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Restore replaces the contents with ids in oldest-first order, applying the
// capacity as if the ids were added one by one.
func (s *RecencySet) Restore(ids []string) {
	s.order = s.order[:0]
	s.members = make(map[string]struct{}, s.capacity)
	for _, id := range ids {
		s.Add(id)
	}
}
