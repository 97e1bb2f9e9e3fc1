package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/kutes/jsondoc"
	"github.com/chazu/kutes/vm"
)

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Session is one client's interpreter and the document it evaluates
// against. Interp and Doc are touched only on the worker goroutine.
type Session struct {
	ID      string
	Name    string
	Created time.Time

	Interp *vm.Interpreter
	Doc    *jsondoc.Document
}

// SessionStore manages sessions.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	handles  *HandleStore
}

// NewSessionStore creates a new session store.
func NewSessionStore(handles *HandleStore) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		handles:  handles,
	}
}

// Create registers a session around interp.
func (s *SessionStore) Create(name string, interp *vm.Interpreter) *Session {
	session := &Session{
		ID:      uuid.NewString(),
		Name:    name,
		Created: time.Now(),
		Interp:  interp,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Infof("created session %s (%s)", session.ID, name)
	return session
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Destroy removes a session and releases all its handles.
func (s *SessionStore) Destroy(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.handles.ReleaseSession(id)
	log.Infof("destroyed session %s", id)
	return nil
}
