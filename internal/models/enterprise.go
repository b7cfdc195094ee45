package models

import (
	"time"

	"github.com/google/uuid"
)

// Enterprise represents a tenant: an isolated organizational account.
// All role assignments and app profiles are scoped to exactly one enterprise.
type Enterprise struct {
	EnterpriseID uuid.UUID // UUIDv7
	Name         string    // Unique display name
	Code         string    // Unique short code, used to derive the initial admin username
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppProfile captures per-enterprise configuration of a registered business
// app. The org type drives app-specific admin checks (e.g. a "management"
// organization administers the skill assessment app).
type AppProfile struct {
	EnterpriseID uuid.UUID
	AppCode      string
	OrgType      string // e.g. "management", "training", "employer"

	CreatedAt time.Time
	UpdatedAt time.Time
}
