package rtsp

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSessionNotFound is returned for operations on an id the registry does
// not hold.
var ErrSessionNotFound = errors.New("session not found")

// SessionState tracks where a session is in its streaming lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StatePlaying
	StateStopped
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Transport is the negotiated delivery descriptor of a session.
type Transport struct {
	Multicast  bool
	ClientSpec string // transport spec as the client sent it
	ServerPort int    // base of the allocated server port pair
}

// Session is one client's active stream setup.
type Session struct {
	ID        uint64
	Transport Transport
	State     SessionState
}

// Registry is the sole owner of session state. Ids are strictly increasing
// from a process-start seed; table and counter are safe for concurrent
// handlers.
type Registry struct {
	nextID   atomic.Uint64
	mu       sync.RWMutex
	sessions map[uint64]*Session
}

// NewRegistry creates an empty registry seeded from the current time.
func NewRegistry() *Registry {
	r := &Registry{sessions: make(map[uint64]*Session)}
	r.nextID.Store(uint64(time.Now().Unix()))
	return r
}

// Allocate assigns the next session id and inserts an idle record for it.
func (r *Registry) Allocate() uint64 {
	id := r.nextID.Add(1)
	r.mu.Lock()
	r.sessions[id] = &Session{ID: id, State: StateIdle}
	r.mu.Unlock()
	return id
}

// Bind attaches the negotiated transport descriptor to a session.
func (r *Registry) Bind(id uint64, t Transport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.Transport = t
	return nil
}

// Lookup returns a snapshot of the session with the given id.
func (r *Registry) Lookup(id uint64) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *session, true
}

// Start transitions a session to playing.
func (r *Registry) Start(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.State = StatePlaying
	return nil
}

// Stop transitions a session to stopped and removes it from the registry.
func (r *Registry) Stop(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.State = StateStopped
	delete(r.sessions, id)
	return nil
}

// Remove drops a session without a state transition. Used to roll back a
// SETUP whose port allocation failed.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Sessions returns a snapshot of all active sessions.
func (r *Registry) Sessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, session := range r.sessions {
		out = append(out, *session)
	}
	return out
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
