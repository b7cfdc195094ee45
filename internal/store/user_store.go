package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
)

// Sentinel errors for user store operations
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

// UserStore defines the interface for user account storage operations.
// The authorization core only reads users; mutation belongs to account
// administration.
type UserStore interface {
	// Create creates a new user.
	// Returns ErrUserAlreadyExists if the ID or username is already taken.
	Create(ctx context.Context, user *models.User) error

	// Get retrieves a user by ID.
	// Returns ErrUserNotFound if the user doesn't exist.
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)

	// GetByUsername retrieves an active user by username (login path).
	// Returns ErrUserNotFound if no active user has that username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// Update updates an existing user.
	// Returns ErrUserNotFound if the user doesn't exist.
	Update(ctx context.Context, user *models.User) error
}
