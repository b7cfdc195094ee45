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

// EmploymentStore implements store.EmploymentStore using PostgreSQL. The
// resolver-facing reads join against enterprises so inactive tenants never
// surface.
type EmploymentStore struct {
	pool *pgxpool.Pool
}

// NewEmploymentStore creates a new PostgreSQL-backed employment store.
func NewEmploymentStore(pool *pgxpool.Pool) *EmploymentStore {
	return &EmploymentStore{
		pool: pool,
	}
}

// CreateEmployment creates a membership record.
func (s *EmploymentStore) CreateEmployment(ctx context.Context, employment *models.Employment) error {
	query := `
		INSERT INTO employments (
			user_id, enterprise_id, status, position, department,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.pool.Exec(ctx, query,
		employment.UserID,
		employment.EnterpriseID,
		employment.Status,
		employment.Position,
		employment.Department,
		employment.CreatedAt,
		employment.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrEmploymentAlreadyExists
		}
		return fmt.Errorf("failed to create employment: %w", err)
	}

	log.Debug().
		Str("user_id", employment.UserID.String()).
		Str("enterprise_id", employment.EnterpriseID.String()).
		Msg("Created employment")

	return nil
}

// GetEmployment retrieves the employment record for (user, enterprise).
func (s *EmploymentStore) GetEmployment(ctx context.Context, userID, enterpriseID uuid.UUID) (*models.Employment, error) {
	query := `
		SELECT user_id, enterprise_id, status, position, department,
		       created_at, updated_at
		FROM employments
		WHERE user_id = $1 AND enterprise_id = $2
	`

	var employment models.Employment
	err := s.pool.QueryRow(ctx, query, userID, enterpriseID).Scan(
		&employment.UserID,
		&employment.EnterpriseID,
		&employment.Status,
		&employment.Position,
		&employment.Department,
		&employment.CreatedAt,
		&employment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrEmploymentNotFound
		}
		return nil, fmt.Errorf("failed to get employment: %w", err)
	}

	return &employment, nil
}

// SetEmploymentStatus updates the employment status.
func (s *EmploymentStore) SetEmploymentStatus(ctx context.Context, userID, enterpriseID uuid.UUID, status string) error {
	query := `
		UPDATE employments SET
			status = $3,
			updated_at = $4
		WHERE user_id = $1 AND enterprise_id = $2
	`

	tag, err := s.pool.Exec(ctx, query, userID, enterpriseID, status, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update employment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrEmploymentNotFound
	}

	return nil
}

// DeleteEmployment removes the membership record; the role assignment goes
// with it via the foreign key cascade.
func (s *EmploymentStore) DeleteEmployment(ctx context.Context, userID, enterpriseID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM employments
		WHERE user_id = $1 AND enterprise_id = $2
	`, userID, enterpriseID)
	if err != nil {
		return fmt.Errorf("failed to delete employment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrEmploymentNotFound
	}

	return nil
}

// ListByEnterprise returns all employment records at an enterprise.
func (s *EmploymentStore) ListByEnterprise(ctx context.Context, enterpriseID uuid.UUID) ([]*models.Employment, error) {
	query := `
		SELECT user_id, enterprise_id, status, position, department,
		       created_at, updated_at
		FROM employments
		WHERE enterprise_id = $1
		ORDER BY created_at
	`

	rows, err := s.pool.Query(ctx, query, enterpriseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employments: %w", err)
	}
	defer rows.Close()

	var result []*models.Employment
	for rows.Next() {
		var employment models.Employment
		if err := rows.Scan(
			&employment.UserID,
			&employment.EnterpriseID,
			&employment.Status,
			&employment.Position,
			&employment.Department,
			&employment.CreatedAt,
			&employment.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan employment: %w", err)
		}
		result = append(result, &employment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employments: %w", err)
	}

	return result, nil
}

// EmployedEnterprises returns every active enterprise where the user holds
// an employed-status record.
func (s *EmploymentStore) EmployedEnterprises(ctx context.Context, userID uuid.UUID) ([]*models.Enterprise, error) {
	query := `
		SELECT e.enterprise_id, e.name, e.code, e.is_active, e.created_at, e.updated_at
		FROM enterprises e
		JOIN employments em ON em.enterprise_id = e.enterprise_id
		WHERE em.user_id = $1 AND em.status = 'employed' AND e.is_active
		ORDER BY e.name
	`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employed enterprises: %w", err)
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

// IsEmployedAt reports whether the user holds an employed-status record at
// an active enterprise.
func (s *EmploymentStore) IsEmployedAt(ctx context.Context, userID, enterpriseID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM employments em
			JOIN enterprises e ON e.enterprise_id = em.enterprise_id
			WHERE em.user_id = $1 AND em.enterprise_id = $2
			  AND em.status = 'employed' AND e.is_active
		)
	`

	var employed bool
	if err := s.pool.QueryRow(ctx, query, userID, enterpriseID).Scan(&employed); err != nil {
		return false, fmt.Errorf("failed to check employment: %w", err)
	}

	return employed, nil
}

// AssignRole creates or replaces the role assignment attached to the
// employment record, marking it active.
func (s *EmploymentStore) AssignRole(ctx context.Context, userID, enterpriseID uuid.UUID, roleType string) error {
	now := time.Now()
	query := `
		INSERT INTO role_assignments (
			user_id, enterprise_id, role_type, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, TRUE, $4, $4
		)
		ON CONFLICT (user_id, enterprise_id) DO UPDATE SET
			role_type = EXCLUDED.role_type,
			is_active = TRUE,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query, userID, enterpriseID, roleType, now)
	if err != nil {
		if isForeignKeyViolation(err) {
			return store.ErrEmploymentNotFound
		}
		return fmt.Errorf("failed to assign role: %w", err)
	}

	log.Debug().
		Str("user_id", userID.String()).
		Str("enterprise_id", enterpriseID.String()).
		Str("role", roleType).
		Msg("Assigned role")

	return nil
}

// RoleFor retrieves the role assignment attached to the employment record.
func (s *EmploymentStore) RoleFor(ctx context.Context, userID, enterpriseID uuid.UUID) (*models.RoleAssignment, error) {
	query := `
		SELECT user_id, enterprise_id, role_type, is_active, created_at, updated_at
		FROM role_assignments
		WHERE user_id = $1 AND enterprise_id = $2
	`

	var role models.RoleAssignment
	err := s.pool.QueryRow(ctx, query, userID, enterpriseID).Scan(
		&role.UserID,
		&role.EnterpriseID,
		&role.RoleType,
		&role.IsActive,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}

	return &role, nil
}

// IsActiveEnterpriseAdmin reports whether the user's role at this exact
// enterprise is enterprise_admin and active.
func (s *EmploymentStore) IsActiveEnterpriseAdmin(ctx context.Context, userID, enterpriseID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM role_assignments
			WHERE user_id = $1 AND enterprise_id = $2
			  AND role_type = 'enterprise_admin' AND is_active
		)
	`

	var isAdmin bool
	if err := s.pool.QueryRow(ctx, query, userID, enterpriseID).Scan(&isAdmin); err != nil {
		return false, fmt.Errorf("failed to check admin role: %w", err)
	}

	return isAdmin, nil
}
