package models

import (
	"time"

	"github.com/google/uuid"
)

// EmploymentStatus values. Resigned employments are kept for history but
// never contribute to tenant resolution or role checks.
const (
	EmploymentStatusEmployed = "employed"
	EmploymentStatusResigned = "resigned"
)

// Role types within an enterprise, highest privilege first. A user holds at
// most one role per enterprise, attached to their employment record.
const (
	RoleEnterpriseAdmin   = "enterprise_admin"
	RoleDepartmentManager = "department_manager"
	RoleTeamLeader        = "team_leader"
	RoleRegularStaff      = "regular_staff"
	RoleContractor        = "contractor"
)

// Employment is the membership fact linking a user to an enterprise.
// At most one record exists per (user, enterprise) pair.
type Employment struct {
	UserID       uuid.UUID
	EnterpriseID uuid.UUID
	Status       string // "employed" or "resigned"
	Position     string
	Department   string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsEmployed reports whether this employment currently counts toward the
// user's employed-enterprise set.
func (e *Employment) IsEmployed() bool {
	return e.Status == EmploymentStatusEmployed
}

// RoleAssignment is the capability level attached to one employment record.
// It grants nothing outside the enterprise it belongs to. Assignments are
// created lazily and never deleted implicitly; deactivation flips IsActive.
type RoleAssignment struct {
	UserID       uuid.UUID
	EnterpriseID uuid.UUID
	RoleType     string
	IsActive     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidRoleType reports whether role is one of the closed role set.
func ValidRoleType(role string) bool {
	switch role {
	case RoleEnterpriseAdmin, RoleDepartmentManager, RoleTeamLeader, RoleRegularStaff, RoleContractor:
		return true
	}
	return false
}
