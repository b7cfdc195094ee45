package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
)

// Sentinel errors for enterprise store operations
var (
	ErrEnterpriseNotFound      = errors.New("enterprise not found")
	ErrEnterpriseAlreadyExists = errors.New("enterprise already exists")
	ErrAppProfileNotFound      = errors.New("enterprise app profile not found")
)

// EnterpriseStore defines the interface for enterprise (tenant) storage
// operations. The tenant resolver only needs Get; the remaining methods
// serve enterprise administration.
type EnterpriseStore interface {
	// Create creates a new enterprise.
	// Returns ErrEnterpriseAlreadyExists if the ID, name or code is taken.
	Create(ctx context.Context, enterprise *models.Enterprise) error

	// Get retrieves an enterprise by ID.
	// Returns ErrEnterpriseNotFound if the enterprise doesn't exist.
	Get(ctx context.Context, enterpriseID uuid.UUID) (*models.Enterprise, error)

	// Update updates an existing enterprise.
	// Returns ErrEnterpriseNotFound if the enterprise doesn't exist.
	Update(ctx context.Context, enterprise *models.Enterprise) error

	// ListActive returns all active enterprises, ordered by name.
	// Used by the superuser enterprise chooser and admin screens.
	ListActive(ctx context.Context) ([]*models.Enterprise, error)

	// SetAppProfile creates or replaces the enterprise's profile for an app.
	SetAppProfile(ctx context.Context, profile *models.AppProfile) error

	// GetAppProfile retrieves the enterprise's profile for an app.
	// Returns ErrAppProfileNotFound if none exists.
	GetAppProfile(ctx context.Context, enterpriseID uuid.UUID, appCode string) (*models.AppProfile, error)
}
