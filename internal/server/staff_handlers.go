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

type staffView struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Position   string `json:"position,omitempty"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
}

// listStaffHandler returns every employment record at the resolved
// enterprise, resigned ones included, with the attached role if any.
func (s *Server) listStaffHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := stateFromContext(ctx)

	employments, err := s.stores.Employments.ListByEnterprise(ctx, state.tenant.EnterpriseID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list staff")
		writeError(w, http.StatusInternalServerError, "failed to list staff")
		return
	}

	views := make([]staffView, 0, len(employments))
	for _, e := range employments {
		view := staffView{
			UserID:     e.UserID.String(),
			Status:     e.Status,
			Position:   e.Position,
			Department: e.Department,
		}

		if user, err := s.stores.Users.Get(ctx, e.UserID); err == nil {
			view.Username = user.Username
			view.Name = user.Name
		}
		if role, err := s.stores.Employments.RoleFor(ctx, e.UserID, e.EnterpriseID); err == nil && role.IsActive {
			view.Role = role.RoleType
		}

		views = append(views, view)
	}

	writeJSON(w, http.StatusOK, struct {
		Staff []staffView `json:"staff"`
	}{Staff: views})
}

// onboardStaffHandler creates or reuses a user account and employs them at
// the resolved enterprise with the given role. An existing account keeps
// its credentials; only the employment and role are added, so one person
// can hold jobs at several enterprises.
func (s *Server) onboardStaffHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := stateFromContext(ctx)

	var req struct {
		Username   string `json:"username"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Password   string `json:"password"`
		Position   string `json:"position"`
		Department string `json:"department"`
		Role       string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleRegularStaff
	}
	if !models.ValidRoleType(req.Role) {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	now := time.Now()

	user, err := s.stores.Users.GetByUsername(ctx, req.Username)
	if errors.Is(err, store.ErrUserNotFound) {
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "password is required for a new account")
			return
		}
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if hashErr != nil {
			log.Error().Err(hashErr).Msg("Failed to hash staff password")
			writeError(w, http.StatusInternalServerError, "failed to onboard staff")
			return
		}

		user = &models.User{
			UserID:       uuid.Must(uuid.NewV7()),
			Username:     req.Username,
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: string(hash),
			Type:         models.UserTypeEnterpriseUser,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.stores.Users.Create(ctx, user); err != nil {
			log.Error().Err(err).Msg("Failed to create staff user")
			writeError(w, http.StatusInternalServerError, "failed to onboard staff")
			return
		}
	} else if err != nil {
		log.Error().Err(err).Msg("Failed to look up staff user")
		writeError(w, http.StatusInternalServerError, "failed to onboard staff")
		return
	}

	if err := s.stores.Employments.CreateEmployment(ctx, &models.Employment{
		UserID:       user.UserID,
		EnterpriseID: state.tenant.EnterpriseID,
		Status:       models.EmploymentStatusEmployed,
		Position:     req.Position,
		Department:   req.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		if errors.Is(err, store.ErrEmploymentAlreadyExists) {
			writeError(w, http.StatusConflict, "already employed at this enterprise")
			return
		}
		log.Error().Err(err).Msg("Failed to create employment")
		writeError(w, http.StatusInternalServerError, "failed to onboard staff")
		return
	}

	if err := s.stores.Employments.AssignRole(ctx, user.UserID, state.tenant.EnterpriseID, req.Role); err != nil {
		log.Error().Err(err).Msg("Failed to assign role")
		writeError(w, http.StatusInternalServerError, "failed to onboard staff")
		return
	}

	log.Info().
		Str("user_id", user.UserID.String()).
		Str("enterprise_id", state.tenant.EnterpriseID.String()).
		Str("role", req.Role).
		Msg("Staff onboarded")

	writeJSON(w, http.StatusCreated, staffView{
		UserID:     user.UserID.String(),
		Username:   user.Username,
		Name:       user.Name,
		Status:     models.EmploymentStatusEmployed,
		Position:   req.Position,
		Department: req.Department,
		Role:       req.Role,
	})
}

// setStaffStatusHandler flips an employment between employed and resigned.
// Resignation is the normal offboarding path: the record survives for
// history and the next tenant resolution drops the enterprise from the
// user's employed set.
func (s *Server) setStaffStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := stateFromContext(ctx)

	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != models.EmploymentStatusEmployed && req.Status != models.EmploymentStatusResigned {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	if err := s.stores.Employments.SetEmploymentStatus(ctx, userID, state.tenant.EnterpriseID, req.Status); err != nil {
		if errors.Is(err, store.ErrEmploymentNotFound) {
			writeError(w, http.StatusNotFound, "not employed at this enterprise")
			return
		}
		log.Error().Err(err).Msg("Failed to update employment status")
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("enterprise_id", state.tenant.EnterpriseID.String()).
		Str("status", req.Status).
		Msg("Employment status updated")

	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}

// setStaffRoleHandler replaces the role attached to an employment record.
func (s *Server) setStaffRoleHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := stateFromContext(ctx)

	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidRoleType(req.Role) {
		writeError(w, http.StatusBadRequest, "unknown role")
		return
	}

	if err := s.stores.Employments.AssignRole(ctx, userID, state.tenant.EnterpriseID, req.Role); err != nil {
		if errors.Is(err, store.ErrEmploymentNotFound) {
			writeError(w, http.StatusNotFound, "not employed at this enterprise")
			return
		}
		log.Error().Err(err).Msg("Failed to assign role")
		writeError(w, http.StatusInternalServerError, "failed to assign role")
		return
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("enterprise_id", state.tenant.EnterpriseID.String()).
		Str("role", req.Role).
		Msg("Role assigned")

	writeJSON(w, http.StatusOK, map[string]string{"role": req.Role})
}

// removeStaffHandler deletes the employment record and its role. Unlike
// resignation this erases history; it exists for records created by
// mistake.
func (s *Server) removeStaffHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := stateFromContext(ctx)

	userID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	if err := s.stores.Employments.DeleteEmployment(ctx, userID, state.tenant.EnterpriseID); err != nil {
		if errors.Is(err, store.ErrEmploymentNotFound) {
			writeError(w, http.StatusNotFound, "not employed at this enterprise")
			return
		}
		log.Error().Err(err).Msg("Failed to delete employment")
		writeError(w, http.StatusInternalServerError, "failed to remove staff")
		return
	}

	log.Info().
		Str("user_id", userID.String()).
		Str("enterprise_id", state.tenant.EnterpriseID.String()).
		Msg("Staff removed")

	w.WriteHeader(http.StatusNoContent)
}
