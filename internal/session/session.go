// Package session holds per-user dashboard state between requests: which
// dataset is open and the base and comparison filter specs.
//
// A reset bumps Generation so that widget state keyed by WidgetKey from the
// previous generation is abandoned. Filter caching never looks at Generation;
// the filter engine keys on spec content.
package session

import (
	"fmt"
	"log"
	"sync"
	"time"

	"painel/domain/core"
	"painel/domain/filter"
)

// Session is a snapshot of one dashboard session.
type Session struct {
	ID         core.SessionID `json:"id"`
	Dataset    string         `json:"dataset"`
	Generation int            `json:"generation"`
	Base       filter.Spec    `json:"base"`
	Comparison filter.Spec    `json:"comparison"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// WidgetKey namespaces a widget's state by the session generation.
func (s *Session) WidgetKey(name string) string {
	return fmt.Sprintf("%s:%d", name, s.Generation)
}

// Store keeps sessions in memory
type Store struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*Session
	now      func() time.Time
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{
		sessions: make(map[core.SessionID]*Session),
		now:      time.Now,
	}
}

// Create opens a session on a dataset with unrestricted specs.
func (st *Store) Create(datasetName string) *Session {
	now := st.now().UTC()
	s := &Session{
		ID:         core.SessionID(core.NewID()),
		Dataset:    datasetName,
		Base:       filter.NewSpec(),
		Comparison: filter.NewSpec(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	snapshot := *s
	return &snapshot
}

// Get returns a copy of the session.
func (st *Store) Get(id core.SessionID) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	snapshot := *s
	return &snapshot, nil
}

// SetFilters installs new base and comparison specs.
func (st *Store) SetFilters(id core.SessionID, base, comparison filter.Spec) (*Session, error) {
	return st.update(id, func(s *Session) {
		s.Base = base
		s.Comparison = comparison
	})
}

// SwitchDataset points the session at another dataset and resets it.
func (st *Store) SwitchDataset(id core.SessionID, datasetName string) (*Session, error) {
	return st.update(id, func(s *Session) {
		s.Dataset = datasetName
		reset(s)
	})
}

// Reset advances the generation and clears both specs.
func (st *Store) Reset(id core.SessionID) (*Session, error) {
	return st.update(id, reset)
}

// Delete removes a session
func (st *Store) Delete(id core.SessionID) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// CleanupExpired removes sessions idle for longer than olderThan and returns
// how many were removed.
func (st *Store) CleanupExpired(olderThan time.Duration) int {
	cutoff := st.now().UTC().Add(-olderThan)

	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[Session] Removed %d idle sessions", removed)
	}
	return removed
}

func (st *Store) update(id core.SessionID, fn func(*Session)) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrSessionNotFound, id)
	}
	fn(s)
	s.UpdatedAt = st.now().UTC()
	snapshot := *s
	return &snapshot, nil
}

func reset(s *Session) {
	s.Generation++
	s.Base = filter.NewSpec()
	s.Comparison = filter.NewSpec()
}
