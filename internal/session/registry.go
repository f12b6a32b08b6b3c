package session

import (
	"sync"

	"github.com/samber/lo"
)

// Registry is an insertion-ordered collection of concurrent sessions.
// Every mutation is per-id and atomic; sessions never observe each other.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
	order    []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Create inserts a new session. It panics on a duplicate id — ids come from
// uuid.New and a collision means a programming error.
func (r *Registry) Create(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[s.ID]; exists {
		panic("session: duplicate id " + s.ID)
	}
	r.sessions[s.ID] = s
	r.order = append(r.order, s.ID)
}

// Apply runs the pure state transition for ev against the session with the
// given id and returns the resulting snapshot. Unknown ids are ignored
// (a late progress event for a retried-away session is harmless).
func (r *Registry) Apply(id string, ev Event) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, false
	}
	s = ev.apply(s)
	r.sessions[id] = s
	return s, true
}

// Get returns a snapshot of one session.
func (r *Registry) Get(id string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// RemoveByID deletes a session. Only retry removes sessions; nothing is
// evicted automatically.
func (r *Registry) RemoveByID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return
	}
	delete(r.sessions, id)
	r.order = lo.Without(r.order, id)
}

// ListAll returns a snapshot of all sessions in insertion order.
func (r *Registry) ListAll() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Map(r.order, func(id string, _ int) Session {
		return r.sessions[id]
	})
}
