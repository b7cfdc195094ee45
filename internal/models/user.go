package models

import (
	"time"

	"github.com/google/uuid"
)

// UserType is the account-level type tag. It is not a tenant role; role
// assignments are scoped to a single enterprise via Employment records.
const (
	UserTypeSuperAdmin      = "super_admin"      // Platform operator, no employment required
	UserTypeEnterpriseUser  = "enterprise_user"  // Regular account employed by one or more enterprises
	UserTypeIndependentUser = "independent_user" // Account with no enterprise affiliation
)

// User represents a global account on the platform. A single user may hold
// employments at several enterprises at the same time.
type User struct {
	UserID       uuid.UUID // UUIDv7
	Username     string    // Unique login name
	Name         string    // Display name
	Email        string
	PasswordHash string // bcrypt hash, empty for accounts that cannot log in
	Type         string // "super_admin", "enterprise_user", "independent_user"
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsSuperAdmin returns true for platform operators. Super admins bypass
// tenant role checks entirely and are not required to hold any employment.
func (u *User) IsSuperAdmin() bool {
	return u.Type == UserTypeSuperAdmin
}
