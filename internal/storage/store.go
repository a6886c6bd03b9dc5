// Package storage provides abstractions for session state storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/billsnap/internal/session"
)

// ErrNotFound is returned when a session ID does not exist.
var ErrNotFound = errors.New("session not found")

// Store defines the interface for session storage operations. Sessions
// are ephemeral by design (a session dies with the process), but the
// abstraction keeps the service layer independent of the backend.
type Store interface {
	// CreateSession persists a new session.
	CreateSession(ctx context.Context, s session.Session) error

	// GetSession retrieves a session by its ID.
	// Returns ErrNotFound if the session does not exist.
	GetSession(ctx context.Context, id string) (session.Session, error)

	// UpdateSession replaces an existing session wholesale. Session
	// mutators are copy-on-write, so the replacement is the full next
	// state.
	// Returns ErrNotFound if the session does not exist.
	UpdateSession(ctx context.Context, s session.Session) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, id string) error

	// Close releases any resources held by the store.
	Close() error
}
