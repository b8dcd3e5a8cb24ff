// Package session manages short-lived interactive game sessions.
//
// A session is keyed by a random id, restricted to a fixed set of
// participants, and expires after a TTL. Expired sessions are handed back
// by Reap. Interactions on one session are
// serialized, and a session that reports itself done is removed before the
// next interaction can observe it.
package session

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session errors.
var (
	ErrNotFound       = errors.New("session not found")
	ErrNotParticipant = errors.New("not a participant of this session")
	ErrExpired        = errors.New("session expired")
)

type entry[T any] struct {
	mu           sync.Mutex
	state        T
	participants []int64
	expiresAt    time.Time
	closed       bool
}

// Expired describes a session removed by Reap.
type Expired[T any] struct {
	ID    string
	State T
}

// Manager stores sessions holding state of type T.
type Manager[T any] struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*entry[T]
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewManager creates a manager whose sessions live for ttl.
func NewManager[T any](ttl time.Duration, opts ...Option) *Manager[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[T]{
		ttl:      ttl,
		now:      o.now,
		sessions: make(map[string]*entry[T]),
	}
}

// Create registers a session that only participants may interact with.
// It returns the session id and its expiry time.
func (m *Manager[T]) Create(state T, participants ...int64) (string, time.Time) {
	id := uuid.NewString()
	expiresAt := m.now().Add(m.ttl)

	m.mu.Lock()
	m.sessions[id] = &entry[T]{
		state:        state,
		participants: slices.Clone(participants),
		expiresAt:    expiresAt,
	}
	m.mu.Unlock()

	return id, expiresAt
}

// Access runs fn on the session state on behalf of actor. fn runs while the
// session is held exclusively; when it reports done the session is removed.
// A session past its TTL fails with ErrExpired and stays stored until Reap
// collects it, so every expired session is returned by Reap exactly once.
func (m *Manager[T]) Access(id string, actor int64, fn func(state T) (done bool, err error)) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if !slices.Contains(e.participants, actor) {
		return ErrNotParticipant
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrNotFound
	}
	if !m.now().Before(e.expiresAt) {
		return ErrExpired
	}

	done, err := fn(e.state)
	if done {
		m.close(id, e)
	}
	return err
}

// ActiveFor reports the id of a live session that includes userID.
func (m *Manager[T]) ActiveFor(userID int64) (string, bool) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.sessions {
		if now.Before(e.expiresAt) && slices.Contains(e.participants, userID) {
			return id, true
		}
	}
	return "", false
}

// Reap removes expired sessions that are not in use and returns them.
func (m *Manager[T]) Reap() []Expired[T] {
	now := m.now()

	m.mu.Lock()
	candidates := make(map[string]*entry[T])
	for id, e := range m.sessions {
		if !now.Before(e.expiresAt) {
			candidates[id] = e
		}
	}
	m.mu.Unlock()

	var reaped []Expired[T]
	for id, e := range candidates {
		// A session being interacted with is left for Access to expire.
		if !e.mu.TryLock() {
			continue
		}
		if !e.closed {
			m.close(id, e)
			reaped = append(reaped, Expired[T]{ID: id, State: e.state})
		}
		e.mu.Unlock()
	}
	return reaped
}

// Len returns the number of stored sessions, expired or not.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// close must be called with e.mu held.
func (m *Manager[T]) close(id string, e *entry[T]) {
	e.closed = true
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}
