package graph

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL bounds how long a viewport's visible node set is kept
// around for follow-up select queries.
const DefaultSessionTTL = 30 * time.Minute

// StateStore records, per session token, the node IDs visible in that
// session's most recent graph query. Scoping the state to a token removes
// the cross-request races a process-global visible set would have.
type StateStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]stateEntry
	now     func() time.Time
}

type stateEntry struct {
	visible map[string]bool
	expires time.Time
}

// NewStateStore creates a StateStore with the given entry TTL.
func NewStateStore(ttl time.Duration) *StateStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &StateStore{
		ttl:     ttl,
		entries: make(map[string]stateEntry),
		now:     time.Now,
	}
}

// Record stores the visible node IDs for token, overwriting any previous
// view. An empty token allocates a fresh session; the token in use is
// returned either way. Expired sessions are evicted opportunistically.
func (s *StateStore) Record(token string, ids []string) string {
	if token == "" {
		token = uuid.NewString()
	}

	visible := make(map[string]bool, len(ids))
	for _, id := range ids {
		visible[id] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for t, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, t)
		}
	}
	s.entries[token] = stateEntry{visible: visible, expires: now.Add(s.ttl)}
	return token
}

// Visible returns the recorded node-ID set for token, or false when the
// token is unknown or expired.
func (s *StateStore) Visible(token string) (map[string]bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok || s.now().After(e.expires) {
		return nil, false
	}
	return e.visible, true
}
