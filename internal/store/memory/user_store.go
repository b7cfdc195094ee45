package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

// UserStore implements store.UserStore using in-memory storage.
// This implementation is for development and testing - data is lost on restart.
type UserStore struct {
	mu sync.RWMutex

	users           map[uuid.UUID]*models.User // user_id -> User
	usersByUsername map[string]uuid.UUID       // username -> user_id
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:           make(map[uuid.UUID]*models.User),
		usersByUsername: make(map[string]uuid.UUID),
	}
}

// Create creates a new user in memory.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.UserID]; exists {
		return store.ErrUserAlreadyExists
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrUserAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *user
	s.users[user.UserID] = &clone
	s.usersByUsername[user.Username] = user.UserID

	return nil
}

// Get retrieves a user by ID.
func (s *UserStore) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[userID]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

// GetByUsername retrieves an active user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.usersByUsername[username]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	user := s.users[userID]
	if !user.IsActive {
		return nil, store.ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

// Update updates an existing user.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.users[user.UserID]
	if !exists {
		return store.ErrUserNotFound
	}

	user.UpdatedAt = time.Now()

	// Keep the username index consistent on rename
	if existing.Username != user.Username {
		delete(s.usersByUsername, existing.Username)
		s.usersByUsername[user.Username] = user.UserID
	}

	clone := *user
	s.users[user.UserID] = &clone

	return nil
}
