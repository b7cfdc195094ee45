package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

type employmentKey struct {
	userID       uuid.UUID
	enterpriseID uuid.UUID
}

// EmploymentStore implements store.EmploymentStore using in-memory storage.
// It needs the enterprise store to resolve the employed-enterprise set the
// same way the PostgreSQL implementation does with a join.
// This implementation is for development and testing - data is lost on restart.
type EmploymentStore struct {
	mu sync.RWMutex

	enterprises *EnterpriseStore

	employments map[employmentKey]*models.Employment
	roles       map[employmentKey]*models.RoleAssignment
	byUser      map[uuid.UUID][]employmentKey // user_id -> employment keys
}

// NewEmploymentStore creates a new in-memory employment store backed by the
// given enterprise store.
func NewEmploymentStore(enterprises *EnterpriseStore) *EmploymentStore {
	return &EmploymentStore{
		enterprises: enterprises,
		employments: make(map[employmentKey]*models.Employment),
		roles:       make(map[employmentKey]*models.RoleAssignment),
		byUser:      make(map[uuid.UUID][]employmentKey),
	}
}

// CreateEmployment creates a membership record.
func (s *EmploymentStore) CreateEmployment(ctx context.Context, employment *models.Employment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := employmentKey{employment.UserID, employment.EnterpriseID}
	if _, exists := s.employments[key]; exists {
		return store.ErrEmploymentAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *employment
	s.employments[key] = &clone
	s.byUser[employment.UserID] = append(s.byUser[employment.UserID], key)

	return nil
}

// GetEmployment retrieves the employment record for (user, enterprise).
func (s *EmploymentStore) GetEmployment(ctx context.Context, userID, enterpriseID uuid.UUID) (*models.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employment, exists := s.employments[employmentKey{userID, enterpriseID}]
	if !exists {
		return nil, store.ErrEmploymentNotFound
	}

	clone := *employment
	return &clone, nil
}

// SetEmploymentStatus updates the employment status.
func (s *EmploymentStore) SetEmploymentStatus(ctx context.Context, userID, enterpriseID uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	employment, exists := s.employments[employmentKey{userID, enterpriseID}]
	if !exists {
		return store.ErrEmploymentNotFound
	}

	employment.Status = status
	employment.UpdatedAt = time.Now()

	return nil
}

// DeleteEmployment removes the membership record and its role assignment.
func (s *EmploymentStore) DeleteEmployment(ctx context.Context, userID, enterpriseID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := employmentKey{userID, enterpriseID}
	if _, exists := s.employments[key]; !exists {
		return store.ErrEmploymentNotFound
	}

	delete(s.employments, key)
	delete(s.roles, key)

	keys := s.byUser[userID]
	for i, k := range keys {
		if k == key {
			s.byUser[userID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	if len(s.byUser[userID]) == 0 {
		delete(s.byUser, userID)
	}

	return nil
}

// ListByEnterprise returns all employment records at an enterprise.
func (s *EmploymentStore) ListByEnterprise(ctx context.Context, enterpriseID uuid.UUID) ([]*models.Employment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Employment
	for key, e := range s.employments {
		if key.enterpriseID != enterpriseID {
			continue
		}
		clone := *e
		result = append(result, &clone)
	}

	return result, nil
}

// EmployedEnterprises returns every active enterprise where the user holds
// an employed-status record.
func (s *EmploymentStore) EmployedEnterprises(ctx context.Context, userID uuid.UUID) ([]*models.Enterprise, error) {
	s.mu.RLock()
	keys := make([]employmentKey, 0, len(s.byUser[userID]))
	for _, key := range s.byUser[userID] {
		if s.employments[key].IsEmployed() {
			keys = append(keys, key)
		}
	}
	s.mu.RUnlock()

	var result []*models.Enterprise
	for _, key := range keys {
		enterprise, err := s.enterprises.Get(ctx, key.enterpriseID)
		if err != nil {
			// Employment pointing at a deleted enterprise does not count
			continue
		}
		if !enterprise.IsActive {
			continue
		}
		result = append(result, enterprise)
	}

	return result, nil
}

// IsEmployedAt reports whether the user holds an employed-status record at
// an active enterprise.
func (s *EmploymentStore) IsEmployedAt(ctx context.Context, userID, enterpriseID uuid.UUID) (bool, error) {
	s.mu.RLock()
	employment, exists := s.employments[employmentKey{userID, enterpriseID}]
	employed := exists && employment.IsEmployed()
	s.mu.RUnlock()

	if !employed {
		return false, nil
	}

	enterprise, err := s.enterprises.Get(ctx, enterpriseID)
	if err != nil {
		return false, nil
	}
	return enterprise.IsActive, nil
}

// AssignRole creates or replaces the role assignment attached to the
// employment record.
func (s *EmploymentStore) AssignRole(ctx context.Context, userID, enterpriseID uuid.UUID, roleType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := employmentKey{userID, enterpriseID}
	if _, exists := s.employments[key]; !exists {
		return store.ErrEmploymentNotFound
	}

	now := time.Now()
	if existing, exists := s.roles[key]; exists {
		existing.RoleType = roleType
		existing.IsActive = true
		existing.UpdatedAt = now
		return nil
	}

	s.roles[key] = &models.RoleAssignment{
		UserID:       userID,
		EnterpriseID: enterpriseID,
		RoleType:     roleType,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	return nil
}

// RoleFor retrieves the role assignment attached to the employment record.
func (s *EmploymentStore) RoleFor(ctx context.Context, userID, enterpriseID uuid.UUID) (*models.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, exists := s.roles[employmentKey{userID, enterpriseID}]
	if !exists {
		return nil, store.ErrRoleNotFound
	}

	clone := *role
	return &clone, nil
}

// IsActiveEnterpriseAdmin reports whether the user's role at this exact
// enterprise is enterprise_admin and active.
func (s *EmploymentStore) IsActiveEnterpriseAdmin(ctx context.Context, userID, enterpriseID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	role, exists := s.roles[employmentKey{userID, enterpriseID}]
	if !exists {
		return false, nil
	}

	return role.RoleType == models.RoleEnterpriseAdmin && role.IsActive, nil
}
