// Package memory implements storage.Store with an in-process map. This is
// the only backend: session state is in-memory by design and is lost on
// restart.
package memory

import (
	"context"
	"sync"

	"github.com/mmynk/billsnap/internal/session"
	"github.com/mmynk/billsnap/internal/storage"
)

// Store is a mutex-guarded in-memory session store. Individual sessions
// are edited serially by a single user, but independent sessions may be
// touched concurrently by the HTTP layer.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{sessions: make(map[string]session.Session)}
}

func (s *Store) CreateSession(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, storage.ErrNotFound
	}
	return sess, nil
}

func (s *Store) UpdateSession(_ context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return storage.ErrNotFound
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *Store) Close() error {
	return nil
}
