package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
)

// Sentinel errors for session store operations
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// SessionStore defines the interface for server-side session storage.
// Sessions carry the single tenant-selection scalar; selection updates must
// be atomic so no partially-applied session state is observable by a later
// request.
type SessionStore interface {
	// Create creates a new session.
	Create(ctx context.Context, session *models.Session) error

	// Get retrieves a session by ID.
	// Returns ErrSessionNotFound if it doesn't exist, ErrSessionExpired if
	// it exists but has expired.
	Get(ctx context.Context, sessionID uuid.UUID) (*models.Session, error)

	// SetEnterprise atomically writes the session's selected enterprise.
	// Passing nil clears the selection. Returns ErrSessionNotFound if the
	// session doesn't exist.
	SetEnterprise(ctx context.Context, sessionID uuid.UUID, enterpriseID *uuid.UUID) error

	// UpdateLastUsed updates the last_used_at timestamp for a session.
	UpdateLastUsed(ctx context.Context, sessionID uuid.UUID) error

	// Delete deletes a session by ID (logout).
	// Returns ErrSessionNotFound if the session doesn't exist.
	Delete(ctx context.Context, sessionID uuid.UUID) error

	// DeleteByUser deletes all sessions for a user (logout everywhere).
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteExpired deletes all expired sessions (cleanup job).
	DeleteExpired(ctx context.Context) (int, error)
}
