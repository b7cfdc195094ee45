package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
)

// Sentinel errors for employment store operations
var (
	ErrEmploymentNotFound      = errors.New("employment not found")
	ErrEmploymentAlreadyExists = errors.New("employment already exists")
	ErrRoleNotFound            = errors.New("role assignment not found")
)

// EmploymentStore defines the interface for employment (user x enterprise
// membership) storage. The read queries are the contract the tenant resolver
// and the authorization engine depend on; the mutations serve staff
// onboarding and administration.
//
// Invariant: at most one employment record exists per (user, enterprise)
// pair, and a role assignment is attached to exactly that record.
type EmploymentStore interface {
	// CreateEmployment creates a membership record.
	// Returns ErrEmploymentAlreadyExists for a duplicate (user, enterprise) pair.
	CreateEmployment(ctx context.Context, employment *models.Employment) error

	// GetEmployment retrieves the employment record for (user, enterprise).
	// Returns ErrEmploymentNotFound if no record exists.
	GetEmployment(ctx context.Context, userID, enterpriseID uuid.UUID) (*models.Employment, error)

	// SetEmploymentStatus updates the employment status (employed/resigned).
	// Returns ErrEmploymentNotFound if no record exists.
	SetEmploymentStatus(ctx context.Context, userID, enterpriseID uuid.UUID, status string) error

	// DeleteEmployment removes the membership record and its role assignment.
	// Returns ErrEmploymentNotFound if no record exists.
	DeleteEmployment(ctx context.Context, userID, enterpriseID uuid.UUID) error

	// ListByEnterprise returns all employment records at an enterprise,
	// including resigned ones, for staff administration screens.
	ListByEnterprise(ctx context.Context, enterpriseID uuid.UUID) ([]*models.Employment, error)

	// EmployedEnterprises returns every active enterprise where the user
	// holds an employment record with status employed. Order is not
	// significant; callers that branch on the count and then use a member
	// must use the same returned slice for both (no re-query).
	EmployedEnterprises(ctx context.Context, userID uuid.UUID) ([]*models.Enterprise, error)

	// IsEmployedAt reports whether the user holds an employed-status record
	// at an active enterprise. This is the fast-path check for validating a
	// session's selected enterprise.
	IsEmployedAt(ctx context.Context, userID, enterpriseID uuid.UUID) (bool, error)

	// AssignRole creates or replaces the role assignment attached to the
	// (user, enterprise) employment record, marking it active.
	// Returns ErrEmploymentNotFound if no employment record exists.
	AssignRole(ctx context.Context, userID, enterpriseID uuid.UUID, roleType string) error

	// RoleFor retrieves the role assignment attached to the (user,
	// enterprise) employment record. Returns ErrRoleNotFound if there is no
	// employment record or no role assignment attached to it.
	RoleFor(ctx context.Context, userID, enterpriseID uuid.UUID) (*models.RoleAssignment, error)

	// IsActiveEnterpriseAdmin reports whether the user's role assignment at
	// this exact enterprise is enterprise_admin and active. Role assignments
	// never grant anything outside the enterprise they are attached to.
	IsActiveEnterpriseAdmin(ctx context.Context, userID, enterpriseID uuid.UUID) (bool, error)
}
