// Package session keeps the per-browser-session editing state: the snapshot
// the user last loaded, against which submitted grids are reconciled.
package session

import (
	"context"
	"sync"
	"time"

	"tablegrid/application/ports"
	"tablegrid/domain/core/entities"
)

// State is the explicit editing state of one session
type State struct {
	Original entities.Snapshot `json:"original"`
	LoadedAt time.Time         `json:"loaded_at"`
}

// Loaded reports whether the session has read the table at least once
func (s State) Loaded() bool {
	return !s.LoadedAt.IsZero()
}

// Store persists session states through a cache and serializes
// state-changing work per session.
type Store struct {
	cache ports.Cache
	ttl   int

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

const keyPrefix = "session:"

// NewStore creates a session store; ttl is the lifetime of a state in seconds
func NewStore(cache ports.Cache, ttl time.Duration) *Store {
	return &Store{
		cache: cache,
		ttl:   int(ttl.Seconds()),
		locks: make(map[string]*sessionLock),
	}
}

// Get returns the state of a session; a session that never loaded gets the zero State
func (s *Store) Get(ctx context.Context, sid string) State {
	v, ok := s.cache.Get(ctx, keyPrefix+sid)
	if !ok {
		return State{}
	}
	state, ok := v.(State)
	if !ok {
		return State{}
	}
	return state
}

// Save replaces the state of a session
func (s *Store) Save(ctx context.Context, sid string, state State) error {
	return s.cache.Set(ctx, keyPrefix+sid, state, s.ttl)
}

// Delete forgets a session
func (s *Store) Delete(ctx context.Context, sid string) error {
	return s.cache.Delete(ctx, keyPrefix+sid)
}

// Lock blocks until the caller holds the session's lock and returns its release func
func (s *Store) Lock(sid string) func() {
	s.mu.Lock()
	l, ok := s.locks[sid]
	if !ok {
		l = &sessionLock{}
		s.locks[sid] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, sid)
		}
		s.mu.Unlock()
	}
}
