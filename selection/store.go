// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package selection

import (
	"sync"
	"time"
)

type entry struct {
	sel      *Selection
	lastUsed time.Time
}

// Store holds one Selection per voting session, keyed by session token.
// Nothing is persisted; a restart drops every session.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Put registers a new empty selection under token and returns it.
func (st *Store) Put(token string) *Selection {
	st.mu.Lock()
	defer st.mu.Unlock()

	sel := New()
	st.sessions[token] = &entry{sel: sel, lastUsed: st.now()}
	return sel
}

// Get returns the selection for token and marks the session as used.
func (st *Store) Get(token string) (*Selection, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[token]
	if !ok {
		return nil, false
	}
	e.lastUsed = st.now()
	return e.sel, true
}

// Delete ends a session.
func (st *Store) Delete(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, token)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than maxIdle and returns how many it removed.
func (st *Store) Sweep(maxIdle time.Duration) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := st.now().Add(-maxIdle)
	removed := 0
	for token, e := range st.sessions {
		if e.lastUsed.Before(cutoff) {
			delete(st.sessions, token)
			removed++
		}
	}
	return removed
}
