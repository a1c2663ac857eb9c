package service

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"scandesk/internal/domain"
)

type sessionEntry struct {
	ctrl     *IntakeController
	lastSeen time.Time
}

// SessionRegistry owns the live intake controllers of the desk server.
type SessionRegistry struct {
	analyzer Analyzer
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionRegistry creates an empty registry whose controllers share
// analyzer.
func NewSessionRegistry(analyzer Analyzer) *SessionRegistry {
	return NewSessionRegistryWithClock(analyzer, time.Now)
}

// NewSessionRegistryWithClock is NewSessionRegistry with a custom clock for
// idle accounting.
func NewSessionRegistryWithClock(analyzer Analyzer, now func() time.Time) *SessionRegistry {
	return &SessionRegistry{
		analyzer: analyzer,
		now:      now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create starts a new session.
func (r *SessionRegistry) Create() *IntakeController {
	ctrl := NewIntakeController(uuid.New().String(), r.analyzer)

	r.mu.Lock()
	r.sessions[ctrl.ID()] = &sessionEntry{ctrl: ctrl, lastSeen: r.now()}
	r.mu.Unlock()

	log.Printf("sessionRegistry: created session %s", ctrl.ID())
	return ctrl
}

// Get returns the session with the given id and marks it as seen.
func (r *SessionRegistry) Get(id string) (*IntakeController, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = r.now()
	return e.ctrl, nil
}

// IDs returns the ids of all live sessions in sorted order.
func (r *SessionRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Delete closes and forgets a session.
func (r *SessionRegistry) Delete(id string) error {
	r.mu.Lock()
	e, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}
	e.ctrl.Close()
	log.Printf("sessionRegistry: deleted session %s", id)
	return nil
}

// ExpireIdle closes sessions not seen for maxIdle and returns how many were
// closed. Sessions with an open event stream are never idle.
func (r *SessionRegistry) ExpireIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var expired []*IntakeController
	for id, e := range r.sessions {
		if e.ctrl.Watched() {
			e.lastSeen = r.now()
			continue
		}
		if e.lastSeen.Before(cutoff) {
			expired = append(expired, e.ctrl)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, ctrl := range expired {
		ctrl.Close()
		log.Printf("sessionRegistry: expired idle session %s", ctrl.ID())
	}
	return len(expired)
}

// RunExpiry sweeps idle sessions every interval until ctx is cancelled.
func (r *SessionRegistry) RunExpiry(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("sessionRegistry: expiring sessions idle for %s (sweep every %s)", maxIdle, interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ExpireIdle(maxIdle)
		}
	}
}

// CloseAll closes every session. Used on shutdown.
func (r *SessionRegistry) CloseAll() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*sessionEntry)
	r.mu.Unlock()

	for _, e := range sessions {
		e.ctrl.Close()
	}
	log.Printf("sessionRegistry: closed %d sessions", len(sessions))
}
