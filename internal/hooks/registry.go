package hooks

import (
	"sort"
	"sync"
	"time"

	"evalgo.org/fireedge/internal/metrics"
)

// SessionInfo describes a live relay session.
type SessionInfo struct {
	ID      string    `json:"id"`
	User    string    `json:"user"`
	Zone    string    `json:"zone"`
	Topic   string    `json:"topic"`
	Started time.Time `json:"started"`
}

// Registry maintains the set of live sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

func (r *Registry) add(s *Session) {
	r.mu.Lock()
	r.sessions[s.info.ID] = s
	r.mu.Unlock()
	metrics.HookSessions.Inc()
}

func (r *Registry) remove(s *Session) {
	r.mu.Lock()
	_, ok := r.sessions[s.info.ID]
	delete(r.sessions, s.info.ID)
	r.mu.Unlock()
	if ok {
		metrics.HookSessions.Dec()
	}
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns the live sessions, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Started.Before(out[j].Started) })
	return out
}

// CloseAll closes every live session.
func (r *Registry) CloseAll() {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
