package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

// EnterpriseStore implements store.EnterpriseStore using PostgreSQL.
type EnterpriseStore struct {
	pool *pgxpool.Pool
}

// NewEnterpriseStore creates a new PostgreSQL-backed enterprise store.
func NewEnterpriseStore(pool *pgxpool.Pool) *EnterpriseStore {
	return &EnterpriseStore{
		pool: pool,
	}
}

// Create creates a new enterprise in the database.
func (s *EnterpriseStore) Create(ctx context.Context, enterprise *models.Enterprise) error {
	query := `
		INSERT INTO enterprises (
			enterprise_id, name, code, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := s.pool.Exec(ctx, query,
		enterprise.EnterpriseID,
		enterprise.Name,
		enterprise.Code,
		enterprise.IsActive,
		enterprise.CreatedAt,
		enterprise.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEnterpriseAlreadyExists
		}
		return fmt.Errorf("failed to create enterprise: %w", err)
	}

	log.Debug().
		Str("enterprise_id", enterprise.EnterpriseID.String()).
		Str("name", enterprise.Name).
		Msg("Created enterprise")

	return nil
}

// Get retrieves an enterprise by ID.
func (s *EnterpriseStore) Get(ctx context.Context, enterpriseID uuid.UUID) (*models.Enterprise, error) {
	query := `
		SELECT enterprise_id, name, code, is_active, created_at, updated_at
		FROM enterprises
		WHERE enterprise_id = $1
	`

	var enterprise models.Enterprise
	err := s.pool.QueryRow(ctx, query, enterpriseID).Scan(
		&enterprise.EnterpriseID,
		&enterprise.Name,
		&enterprise.Code,
		&enterprise.IsActive,
		&enterprise.CreatedAt,
		&enterprise.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrEnterpriseNotFound
		}
		return nil, fmt.Errorf("failed to get enterprise: %w", err)
	}

	return &enterprise, nil
}

// Update updates an existing enterprise.
func (s *EnterpriseStore) Update(ctx context.Context, enterprise *models.Enterprise) error {
	enterprise.UpdatedAt = time.Now()

	query := `
		UPDATE enterprises SET
			name = $2,
			code = $3,
			is_active = $4,
			updated_at = $5
		WHERE enterprise_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		enterprise.EnterpriseID,
		enterprise.Name,
		enterprise.Code,
		enterprise.IsActive,
		enterprise.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEnterpriseAlreadyExists
		}
		return fmt.Errorf("failed to update enterprise: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrEnterpriseNotFound
	}

	return nil
}

// ListActive returns all active enterprises ordered by name.
func (s *EnterpriseStore) ListActive(ctx context.Context) ([]*models.Enterprise, error) {
	query := `
		SELECT enterprise_id, name, code, is_active, created_at, updated_at
		FROM enterprises
		WHERE is_active
		ORDER BY name
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list enterprises: %w", err)
	}
	defer rows.Close()

	var result []*models.Enterprise
	for rows.Next() {
		var enterprise models.Enterprise
		if err := rows.Scan(
			&enterprise.EnterpriseID,
			&enterprise.Name,
			&enterprise.Code,
			&enterprise.IsActive,
			&enterprise.CreatedAt,
			&enterprise.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan enterprise: %w", err)
		}
		result = append(result, &enterprise)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate enterprises: %w", err)
	}

	return result, nil
}

// SetAppProfile creates or replaces the enterprise's profile for an app.
func (s *EnterpriseStore) SetAppProfile(ctx context.Context, profile *models.AppProfile) error {
	query := `
		INSERT INTO enterprise_app_profiles (
			enterprise_id, app_code, org_type, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
		ON CONFLICT (enterprise_id, app_code) DO UPDATE SET
			org_type = EXCLUDED.org_type,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		profile.EnterpriseID,
		profile.AppCode,
		profile.OrgType,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrEnterpriseNotFound
		}
		return fmt.Errorf("failed to set app profile: %w", err)
	}

	return nil
}

// GetAppProfile retrieves the enterprise's profile for an app.
func (s *EnterpriseStore) GetAppProfile(ctx context.Context, enterpriseID uuid.UUID, appCode string) (*models.AppProfile, error) {
	query := `
		SELECT enterprise_id, app_code, org_type, created_at, updated_at
		FROM enterprise_app_profiles
		WHERE enterprise_id = $1 AND app_code = $2
	`

	var profile models.AppProfile
	err := s.pool.QueryRow(ctx, query, enterpriseID, appCode).Scan(
		&profile.EnterpriseID,
		&profile.AppCode,
		&profile.OrgType,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAppProfileNotFound
		}
		return nil, fmt.Errorf("failed to get app profile: %w", err)
	}

	return &profile, nil
}
