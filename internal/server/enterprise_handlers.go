package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

// listEnterprisesHandler returns every active enterprise.
func (s *Server) listEnterprisesHandler(w http.ResponseWriter, r *http.Request) {
	enterprises, err := s.stores.Enterprises.ListActive(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list enterprises")
		writeError(w, http.StatusInternalServerError, "failed to list enterprises")
		return
	}

	views := make([]enterpriseView, 0, len(enterprises))
	for _, e := range enterprises {
		views = append(views, enterpriseViewOf(e))
	}

	writeJSON(w, http.StatusOK, struct {
		Enterprises []enterpriseView `json:"enterprises"`
	}{Enterprises: views})
}

// createEnterpriseHandler provisions a new enterprise together with its
// initial admin: a user account, an employment record, and an active
// enterprise_admin role assignment. The admin username defaults to
// "<code>_admin" when not given.
func (s *Server) createEnterpriseHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Name  string `json:"name"`
		Code  string `json:"code"`
		Admin struct {
			Username string `json:"username"`
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		} `json:"admin"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "name and code are required")
		return
	}
	if req.Admin.Password == "" {
		writeError(w, http.StatusBadRequest, "admin password is required")
		return
	}

	adminUsername := req.Admin.Username
	if adminUsername == "" {
		adminUsername = req.Code + "_admin"
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Admin.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash admin password")
		writeError(w, http.StatusInternalServerError, "failed to provision enterprise")
		return
	}

	now := time.Now()
	enterprise := &models.Enterprise{
		EnterpriseID: uuid.Must(uuid.NewV7()),
		Name:         req.Name,
		Code:         req.Code,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.stores.Enterprises.Create(ctx, enterprise); err != nil {
		if errors.Is(err, store.ErrEnterpriseAlreadyExists) {
			writeError(w, http.StatusConflict, "enterprise name or code already taken")
			return
		}
		log.Error().Err(err).Msg("Failed to create enterprise")
		writeError(w, http.StatusInternalServerError, "failed to provision enterprise")
		return
	}

	admin := &models.User{
		UserID:       uuid.Must(uuid.NewV7()),
		Username:     adminUsername,
		Name:         req.Admin.Name,
		Email:        req.Admin.Email,
		PasswordHash: string(hash),
		Type:         models.UserTypeEnterpriseUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.stores.Users.Create(ctx, admin); err != nil {
		if errors.Is(err, store.ErrUserAlreadyExists) {
			writeError(w, http.StatusConflict, "admin username already taken")
			return
		}
		log.Error().Err(err).Msg("Failed to create enterprise admin user")
		writeError(w, http.StatusInternalServerError, "failed to provision enterprise")
		return
	}

	if err := s.stores.Employments.CreateEmployment(ctx, &models.Employment{
		UserID:       admin.UserID,
		EnterpriseID: enterprise.EnterpriseID,
		Status:       models.EmploymentStatusEmployed,
		Position:     "Administrator",
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to create admin employment")
		writeError(w, http.StatusInternalServerError, "failed to provision enterprise")
		return
	}

	if err := s.stores.Employments.AssignRole(ctx, admin.UserID, enterprise.EnterpriseID, models.RoleEnterpriseAdmin); err != nil {
		log.Error().Err(err).Msg("Failed to assign admin role")
		writeError(w, http.StatusInternalServerError, "failed to provision enterprise")
		return
	}

	log.Info().
		Str("enterprise_id", enterprise.EnterpriseID.String()).
		Str("enterprise", enterprise.Name).
		Str("admin_username", admin.Username).
		Msg("Enterprise provisioned")

	writeJSON(w, http.StatusCreated, struct {
		Enterprise    enterpriseView `json:"enterprise"`
		AdminUserID   string         `json:"admin_user_id"`
		AdminUsername string         `json:"admin_username"`
	}{
		Enterprise:    enterpriseViewOf(enterprise),
		AdminUserID:   admin.UserID.String(),
		AdminUsername: admin.Username,
	})
}

// setEnterpriseStatusHandler activates or deactivates an enterprise.
// Deactivation takes effect on the next resolution of every session that
// selected it; no session cleanup is needed here.
func (s *Server) setEnterpriseStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enterpriseID, err := uuid.Parse(r.PathValue("enterprise_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid enterprise_id")
		return
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enterprise, err := s.stores.Enterprises.Get(ctx, enterpriseID)
	if errors.Is(err, store.ErrEnterpriseNotFound) {
		writeError(w, http.StatusNotFound, "enterprise not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load enterprise")
		writeError(w, http.StatusInternalServerError, "failed to update enterprise")
		return
	}

	enterprise.IsActive = req.IsActive
	enterprise.UpdatedAt = time.Now()
	if err := s.stores.Enterprises.Update(ctx, enterprise); err != nil {
		log.Error().Err(err).Msg("Failed to update enterprise")
		writeError(w, http.StatusInternalServerError, "failed to update enterprise")
		return
	}

	log.Info().
		Str("enterprise_id", enterprise.EnterpriseID.String()).
		Bool("is_active", enterprise.IsActive).
		Msg("Enterprise status updated")

	writeJSON(w, http.StatusOK, enterpriseViewOf(enterprise))
}

// setAppProfileHandler creates or replaces the enterprise's profile for a
// registered app. The org type feeds app-specific admin checks.
func (s *Server) setAppProfileHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enterpriseID, err := uuid.Parse(r.PathValue("enterprise_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid enterprise_id")
		return
	}
	appCode := r.PathValue("app_code")
	if _, ok := s.registry.Get(appCode); !ok {
		writeError(w, http.StatusNotFound, "unknown app")
		return
	}

	var req struct {
		OrgType string `json:"org_type"`
	}
	if err := readJSON(r, &req); err != nil || req.OrgType == "" {
		writeError(w, http.StatusBadRequest, "org_type is required")
		return
	}

	if _, err := s.stores.Enterprises.Get(ctx, enterpriseID); err != nil {
		if errors.Is(err, store.ErrEnterpriseNotFound) {
			writeError(w, http.StatusNotFound, "enterprise not found")
			return
		}
		log.Error().Err(err).Msg("Failed to load enterprise")
		writeError(w, http.StatusInternalServerError, "failed to set app profile")
		return
	}

	now := time.Now()
	if err := s.stores.Enterprises.SetAppProfile(ctx, &models.AppProfile{
		EnterpriseID: enterpriseID,
		AppCode:      appCode,
		OrgType:      req.OrgType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to set app profile")
		writeError(w, http.StatusInternalServerError, "failed to set app profile")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		EnterpriseID string `json:"enterprise_id"`
		AppCode      string `json:"app_code"`
		OrgType      string `json:"org_type"`
	}{EnterpriseID: enterpriseID.String(), AppCode: appCode, OrgType: req.OrgType})
}
