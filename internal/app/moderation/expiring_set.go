package moderation

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type expiryEntry struct {
	id string
	at time.Time
}

// expiryHeap orders entries by expiration time, earliest first.
type expiryHeap []expiryEntry

func (h expiryHeap) Len() int           { return len(h) }
func (h expiryHeap) Less(i, j int) bool { return h[i].at.Before(h[j].at) }
func (h expiryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *expiryHeap) Push(x any) { *h = append(*h, x.(expiryEntry)) }

func (h *expiryHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[:n-1]
	return entry
}

// ExpiringSet is a set of ids where every member leaves the set at its own deadline.
// Expired members are evicted lazily by whichever call observes the clock next,
// so a fake clock makes expiry fully deterministic.
type ExpiringSet struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	members map[string]time.Time
	queue   expiryHeap
}

// NewExpiringSet returns an empty set driven by clock.
func NewExpiringSet(clock clockwork.Clock) *ExpiringSet {
	return &ExpiringSet{
		clock:   clock,
		members: make(map[string]time.Time),
	}
}

// Add inserts id until the given deadline.
// It returns false and leaves the set unchanged when id is already a live member.
func (s *ExpiringSet) Add(id string, until time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	if _, ok := s.members[id]; ok {
		return false
	}
	if !until.After(s.clock.Now()) {
		return false
	}

	s.members[id] = until
	heap.Push(&s.queue, expiryEntry{id: id, at: until})
	return true
}

// Remove deletes id and reports whether it was a live member.
func (s *ExpiringSet) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	if _, ok := s.members[id]; !ok {
		return false
	}
	// the heap entry stays behind and is discarded when it surfaces
	delete(s.members, id)
	return true
}

// Contains reports whether id is a live member.
func (s *ExpiringSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	_, ok := s.members[id]
	return ok
}

// ExpiresAt returns the deadline of a live member.
func (s *ExpiringSet) ExpiresAt(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	at, ok := s.members[id]
	return at, ok
}

// Members returns the live members sorted by id.
func (s *ExpiringSet) Members() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	ids := make([]string, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live members.
func (s *ExpiringSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()
	return len(s.members)
}

// evictLocked pops every heap entry whose deadline has passed.
// Entries left behind by Remove, or superseded by a later Add of the same id,
// no longer match the members map and are dropped without touching it.
func (s *ExpiringSet) evictLocked() {
	now := s.clock.Now()

	for s.queue.Len() > 0 && !s.queue[0].at.After(now) {
		entry := heap.Pop(&s.queue).(expiryEntry)
		if at, ok := s.members[entry.id]; ok && at.Equal(entry.at) {
			delete(s.members, entry.id)
		}
	}
}
