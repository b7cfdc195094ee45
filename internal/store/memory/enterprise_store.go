package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

type appProfileKey struct {
	enterpriseID uuid.UUID
	appCode      string
}

// EnterpriseStore implements store.EnterpriseStore using in-memory storage.
// This implementation is for development and testing - data is lost on restart.
type EnterpriseStore struct {
	mu sync.RWMutex

	enterprises map[uuid.UUID]*models.Enterprise // enterprise_id -> Enterprise
	byName      map[string]uuid.UUID             // name -> enterprise_id
	byCode      map[string]uuid.UUID             // code -> enterprise_id
	appProfiles map[appProfileKey]*models.AppProfile
}

// NewEnterpriseStore creates a new in-memory enterprise store.
func NewEnterpriseStore() *EnterpriseStore {
	return &EnterpriseStore{
		enterprises: make(map[uuid.UUID]*models.Enterprise),
		byName:      make(map[string]uuid.UUID),
		byCode:      make(map[string]uuid.UUID),
		appProfiles: make(map[appProfileKey]*models.AppProfile),
	}
}

// Create creates a new enterprise in memory.
func (s *EnterpriseStore) Create(ctx context.Context, enterprise *models.Enterprise) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.enterprises[enterprise.EnterpriseID]; exists {
		return store.ErrEnterpriseAlreadyExists
	}
	if _, exists := s.byName[enterprise.Name]; exists {
		return store.ErrEnterpriseAlreadyExists
	}
	if _, exists := s.byCode[enterprise.Code]; exists {
		return store.ErrEnterpriseAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *enterprise
	s.enterprises[enterprise.EnterpriseID] = &clone
	s.byName[enterprise.Name] = enterprise.EnterpriseID
	s.byCode[enterprise.Code] = enterprise.EnterpriseID

	return nil
}

// Get retrieves an enterprise by ID.
func (s *EnterpriseStore) Get(ctx context.Context, enterpriseID uuid.UUID) (*models.Enterprise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	enterprise, exists := s.enterprises[enterpriseID]
	if !exists {
		return nil, store.ErrEnterpriseNotFound
	}

	clone := *enterprise
	return &clone, nil
}

// Update updates an existing enterprise.
func (s *EnterpriseStore) Update(ctx context.Context, enterprise *models.Enterprise) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.enterprises[enterprise.EnterpriseID]
	if !exists {
		return store.ErrEnterpriseNotFound
	}

	enterprise.UpdatedAt = time.Now()

	if existing.Name != enterprise.Name {
		delete(s.byName, existing.Name)
		s.byName[enterprise.Name] = enterprise.EnterpriseID
	}
	if existing.Code != enterprise.Code {
		delete(s.byCode, existing.Code)
		s.byCode[enterprise.Code] = enterprise.EnterpriseID
	}

	clone := *enterprise
	s.enterprises[enterprise.EnterpriseID] = &clone

	return nil
}

// ListActive returns all active enterprises ordered by name.
func (s *EnterpriseStore) ListActive(ctx context.Context) ([]*models.Enterprise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Enterprise
	for _, e := range s.enterprises {
		if !e.IsActive {
			continue
		}
		clone := *e
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// SetAppProfile creates or replaces the enterprise's profile for an app.
func (s *EnterpriseStore) SetAppProfile(ctx context.Context, profile *models.AppProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.enterprises[profile.EnterpriseID]; !exists {
		return store.ErrEnterpriseNotFound
	}

	clone := *profile
	clone.UpdatedAt = time.Now()
	s.appProfiles[appProfileKey{profile.EnterpriseID, profile.AppCode}] = &clone

	return nil
}

// GetAppProfile retrieves the enterprise's profile for an app.
func (s *EnterpriseStore) GetAppProfile(ctx context.Context, enterpriseID uuid.UUID, appCode string) (*models.AppProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.appProfiles[appProfileKey{enterpriseID, appCode}]
	if !exists {
		return nil, store.ErrAppProfileNotFound
	}

	clone := *profile
	return &clone, nil
}
