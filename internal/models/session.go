package models

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a user's authenticated session.
// The session ID is stored in an opaque signed cookie, while all session
// state lives server-side. EnterpriseID is the currently selected tenant for
// this session; nil means no selection. The selection is re-validated on
// every request by the tenant resolver, never trusted across requests.
type Session struct {
	SessionID    uuid.UUID // UUIDv7 - the only value that leaves the server
	UserID       uuid.UUID
	EnterpriseID *uuid.UUID // Selected tenant, nil when unset

	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt time.Time

	// Optional audit metadata
	UserAgent string
	IPAddress string
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SelectedEnterprise returns the selected enterprise ID and whether one is set.
func (s *Session) SelectedEnterprise() (uuid.UUID, bool) {
	if s.EnterpriseID == nil {
		return uuid.Nil, false
	}
	return *s.EnterpriseID, true
}
