package server

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/kutes/jsondoc"
)

// handle is a server-side reference to a node of a session's document.
type handle struct {
	id        string
	node      *jsondoc.Node
	sessionID string
	created   time.Time
	lastUsed  time.Time
}

// HandleStore maps opaque string IDs to document nodes. A handle lives
// no longer than the document it points into: replacing or dropping a
// session's document releases the session's handles.
type HandleStore struct {
	mu      sync.RWMutex
	handles map[string]*handle
	nextID  atomic.Uint64
	now     func() time.Time
}

// NewHandleStore creates a new handle store.
func NewHandleStore() *HandleStore {
	return &HandleStore{
		handles: make(map[string]*handle),
		now:     time.Now,
	}
}

// Create registers a node and returns an opaque handle ID.
func (s *HandleStore) Create(node *jsondoc.Node, sessionID string) string {
	id := fmt.Sprintf("h-%d", s.nextID.Add(1))

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.handles[id] = &handle{
		id:        id,
		node:      node,
		sessionID: sessionID,
		created:   now,
		lastUsed:  now,
	}
	return id
}

// Lookup retrieves the node for a handle and the session owning it.
func (s *HandleStore) Lookup(id string) (*jsondoc.Node, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.handles[id]
	if !ok {
		return nil, "", false
	}
	h.lastUsed = s.now()
	return h.node, h.sessionID, true
}

// Release removes a handle. It reports whether the handle existed.
func (s *HandleStore) Release(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.handles[id]
	delete(s.handles, id)
	return ok
}

// ReleaseSession releases all handles owned by a session.
func (s *HandleStore) ReleaseSession(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, h := range s.handles {
		if h.sessionID == sessionID {
			delete(s.handles, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live handles.
func (s *HandleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// Sweep removes handles that haven't been accessed within the TTL.
func (s *HandleStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, h := range s.handles {
		if h.lastUsed.Before(cutoff) {
			delete(s.handles, id)
			removed++
		}
	}
	if removed > 0 {
		log.Debugf("swept %d idle handles", removed)
	}
	return removed
}

// minSweepInterval bounds how often StartSweeper sweeps.
const minSweepInterval = time.Second

// StartSweeper runs periodic TTL sweeps in the background and returns a
// stop function. Intervals below one second are raised to it.
func (s *HandleStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(max(interval, minSweepInterval))
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				s.Sweep(ttl)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
