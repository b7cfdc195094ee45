// Package seed loads development fixture data from a YAML file into the
// stores. Seeding is idempotent; records that already exist are skipped so
// the same file can be applied to a running database on every start.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

// File is the top-level structure of a seed file.
type File struct {
	Users       []UserSeed       `yaml:"users"`
	Enterprises []EnterpriseSeed `yaml:"enterprises"`
	Employments []EmploymentSeed `yaml:"employments"`
}

// UserSeed describes one account to create.
type UserSeed struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Type     string `yaml:"type"`
}

// EnterpriseSeed describes one tenant, optionally with app profiles.
type EnterpriseSeed struct {
	Name     string           `yaml:"name"`
	Code     string           `yaml:"code"`
	Inactive bool             `yaml:"inactive"`
	Apps     []AppProfileSeed `yaml:"apps"`
}

// AppProfileSeed describes an app profile attached to an enterprise.
type AppProfileSeed struct {
	AppCode string `yaml:"app_code"`
	OrgType string `yaml:"org_type"`
}

// EmploymentSeed links a seeded user to a seeded enterprise by username and
// enterprise code, optionally with a role.
type EmploymentSeed struct {
	Username   string `yaml:"username"`
	Enterprise string `yaml:"enterprise"`
	Role       string `yaml:"role"`
	Position   string `yaml:"position"`
	Department string `yaml:"department"`
	Resigned   bool   `yaml:"resigned"`
}

// Stores are the store dependencies seeding writes through.
type Stores struct {
	Users       store.UserStore
	Enterprises store.EnterpriseStore
	Employments store.EmploymentStore
}

// Load reads and parses a seed file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	if err := file.validate(); err != nil {
		return nil, err
	}

	return &file, nil
}

func (f *File) validate() error {
	codes := make(map[string]bool, len(f.Enterprises))
	for _, e := range f.Enterprises {
		if e.Name == "" || e.Code == "" {
			return fmt.Errorf("seed enterprise requires name and code")
		}
		codes[e.Code] = true
	}

	usernames := make(map[string]bool, len(f.Users))
	for _, u := range f.Users {
		if u.Username == "" {
			return fmt.Errorf("seed user requires username")
		}
		switch u.Type {
		case "", models.UserTypeSuperAdmin, models.UserTypeEnterpriseUser, models.UserTypeIndependentUser:
		default:
			return fmt.Errorf("seed user %q has unknown type %q", u.Username, u.Type)
		}
		usernames[u.Username] = true
	}

	for _, emp := range f.Employments {
		if !usernames[emp.Username] {
			return fmt.Errorf("seed employment references unknown user %q", emp.Username)
		}
		if !codes[emp.Enterprise] {
			return fmt.Errorf("seed employment references unknown enterprise %q", emp.Enterprise)
		}
		if emp.Role != "" && !models.ValidRoleType(emp.Role) {
			return fmt.Errorf("seed employment for %q has unknown role %q", emp.Username, emp.Role)
		}
	}

	return nil
}

// Apply writes the seed data through the stores. Existing users and
// enterprises are left untouched; employments and roles are created only
// when both sides resolved.
func (f *File) Apply(ctx context.Context, stores Stores) error {
	userIDs := make(map[string]uuid.UUID, len(f.Users))
	enterpriseIDs := make(map[string]uuid.UUID, len(f.Enterprises))

	for _, u := range f.Users {
		id, err := f.applyUser(ctx, stores.Users, u)
		if err != nil {
			return err
		}
		userIDs[u.Username] = id
	}

	for _, e := range f.Enterprises {
		id, err := f.applyEnterprise(ctx, stores.Enterprises, e)
		if err != nil {
			return err
		}
		enterpriseIDs[e.Code] = id
	}

	for _, emp := range f.Employments {
		enterpriseID := enterpriseIDs[emp.Enterprise]
		if enterpriseID == uuid.Nil {
			continue
		}
		if err := f.applyEmployment(ctx, stores.Employments, emp, userIDs[emp.Username], enterpriseID); err != nil {
			return err
		}
	}

	log.Info().
		Int("users", len(f.Users)).
		Int("enterprises", len(f.Enterprises)).
		Int("employments", len(f.Employments)).
		Msg("Applied seed data")

	return nil
}

func (f *File) applyUser(ctx context.Context, users store.UserStore, u UserSeed) (uuid.UUID, error) {
	if existing, err := users.GetByUsername(ctx, u.Username); err == nil {
		return existing.UserID, nil
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return uuid.Nil, fmt.Errorf("failed to look up seed user %q: %w", u.Username, err)
	}

	var passwordHash string
	if u.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to hash password for seed user %q: %w", u.Username, err)
		}
		passwordHash = string(hash)
	}

	userType := u.Type
	if userType == "" {
		userType = models.UserTypeEnterpriseUser
	}

	name := u.Name
	if name == "" {
		name = u.Username
	}

	now := time.Now()
	user := &models.User{
		UserID:       uuid.Must(uuid.NewV7()),
		Username:     u.Username,
		Name:         name,
		Email:        u.Email,
		PasswordHash: passwordHash,
		Type:         userType,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := users.Create(ctx, user); err != nil {
		return uuid.Nil, fmt.Errorf("failed to create seed user %q: %w", u.Username, err)
	}

	log.Debug().Str("username", u.Username).Str("type", userType).Msg("Seeded user")
	return user.UserID, nil
}

func (f *File) applyEnterprise(ctx context.Context, enterprises store.EnterpriseStore, e EnterpriseSeed) (uuid.UUID, error) {
	var enterpriseID uuid.UUID

	existing, err := findEnterpriseByCode(ctx, enterprises, e.Code)
	switch {
	case err == nil:
		enterpriseID = existing.EnterpriseID
	case errors.Is(err, store.ErrEnterpriseNotFound):
		now := time.Now()
		enterprise := &models.Enterprise{
			EnterpriseID: uuid.Must(uuid.NewV7()),
			Name:         e.Name,
			Code:         e.Code,
			IsActive:     !e.Inactive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := enterprises.Create(ctx, enterprise); err != nil {
			if errors.Is(err, store.ErrEnterpriseAlreadyExists) {
				// Exists but not in the active list, so it was seeded
				// inactive on a previous run. Leave it alone.
				log.Debug().Str("code", e.Code).Msg("Skipping existing inactive seed enterprise")
				return uuid.Nil, nil
			}
			return uuid.Nil, fmt.Errorf("failed to create seed enterprise %q: %w", e.Code, err)
		}
		enterpriseID = enterprise.EnterpriseID
		log.Debug().Str("code", e.Code).Msg("Seeded enterprise")
	default:
		return uuid.Nil, fmt.Errorf("failed to look up seed enterprise %q: %w", e.Code, err)
	}

	for _, app := range e.Apps {
		now := time.Now()
		if err := enterprises.SetAppProfile(ctx, &models.AppProfile{
			EnterpriseID: enterpriseID,
			AppCode:      app.AppCode,
			OrgType:      app.OrgType,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return uuid.Nil, fmt.Errorf("failed to set seed app profile %q for %q: %w", app.AppCode, e.Code, err)
		}
	}

	return enterpriseID, nil
}

// findEnterpriseByCode scans the active list for a matching code.
func findEnterpriseByCode(ctx context.Context, enterprises store.EnterpriseStore, code string) (*models.Enterprise, error) {
	active, err := enterprises.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range active {
		if e.Code == code {
			return e, nil
		}
	}
	return nil, store.ErrEnterpriseNotFound
}

func (f *File) applyEmployment(ctx context.Context, employments store.EmploymentStore, emp EmploymentSeed, userID, enterpriseID uuid.UUID) error {
	status := models.EmploymentStatusEmployed
	if emp.Resigned {
		status = models.EmploymentStatusResigned
	}

	now := time.Now()
	err := employments.CreateEmployment(ctx, &models.Employment{
		UserID:       userID,
		EnterpriseID: enterpriseID,
		Status:       status,
		Position:     emp.Position,
		Department:   emp.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil && !errors.Is(err, store.ErrEmploymentAlreadyExists) {
		return fmt.Errorf("failed to create seed employment %q at %q: %w", emp.Username, emp.Enterprise, err)
	}

	if emp.Role != "" {
		if err := employments.AssignRole(ctx, userID, enterpriseID, emp.Role); err != nil {
			return fmt.Errorf("failed to assign seed role %q to %q at %q: %w", emp.Role, emp.Username, emp.Enterprise, err)
		}
	}

	return nil
}
