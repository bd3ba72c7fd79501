package web

// sessions.go holds the server-side editing sessions.
//
// Each upload creates a session addressed by a random UUID. A session is
// touched on every access and evicted once it has been idle longer than the
// TTL. Access to one session's model is serialized by its own mutex; the
// registry lock only guards the map.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/pretrip/internal/blueprint"
)

var (
	// ErrSessionNotFound is returned for unknown or expired session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned when the registry is at capacity.
	ErrTooManySessions = errors.New("too many open sessions")
)

// editSession is one operator's in-progress blueprint.
type editSession struct {
	id       string
	fileName string
	created  time.Time

	gate blueprint.Gate

	mu        sync.Mutex
	model     *blueprint.Session
	headers   []string
	report    blueprint.GroupReport
	emptyRows []int
}

// SessionRegistry stores live sessions with idle expiry.
type SessionRegistry struct {
	ttl time.Duration
	max int
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

type sessionEntry struct {
	sess     *editSession
	lastUsed time.Time
}

// NewSessionRegistry creates a registry. max <= 0 means unbounded.
func NewSessionRegistry(ttl time.Duration, max int) *SessionRegistry {
	return &SessionRegistry{
		ttl:      ttl,
		max:      max,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create registers a session for an ingestion result.
func (r *SessionRegistry) Create(res *blueprint.Result, fileName string) (*editSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)
	if r.max > 0 && len(r.sessions) >= r.max {
		return nil, ErrTooManySessions
	}

	sess := &editSession{
		id:        uuid.NewString(),
		fileName:  fileName,
		created:   now,
		model:     res.Session,
		headers:   res.Headers,
		report:    res.Report,
		emptyRows: res.EmptyRows,
	}
	r.sessions[sess.id] = &sessionEntry{sess: sess, lastUsed: now}
	return sess, nil
}

// Get returns a live session and refreshes its idle timer.
func (r *SessionRegistry) Get(id string) (*editSession, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := r.now()
	if now.Sub(e.lastUsed) > r.ttl {
		delete(r.sessions, id)
		return nil, ErrSessionNotFound
	}
	e.lastUsed = now
	return e.sess, nil
}

// ExpiresAt reports when the session will expire if left idle.
func (r *SessionRegistry) ExpiresAt(id string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		return e.lastUsed.Add(r.ttl)
	}
	return time.Time{}
}

// Delete removes a session. It reports whether the session existed.
func (r *SessionRegistry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	return ok
}

// Len returns the number of sessions currently held.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts expired sessions and returns how many were removed.
func (r *SessionRegistry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

func (r *SessionRegistry) sweepLocked(now time.Time) int {
	removed := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastUsed) > r.ttl {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every interval until ctx is done.
func (r *SessionRegistry) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
