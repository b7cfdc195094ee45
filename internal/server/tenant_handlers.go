package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/tenant"
)

type enterpriseView struct {
	EnterpriseID string `json:"enterprise_id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
}

func enterpriseViewOf(e *models.Enterprise) enterpriseView {
	return enterpriseView{
		EnterpriseID: e.EnterpriseID.String(),
		Name:         e.Name,
		Code:         e.Code,
	}
}

type appView struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version,omitempty"`
}

// dashboardHandler reports the request state: who the user is, which
// enterprise resolved, and what the user should do next. Unaffiliated
// users land here too, with no enterprise and no available apps.
func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	state := stateFromContext(r.Context())

	resp := struct {
		UserID     string          `json:"user_id"`
		Username   string          `json:"username"`
		Name       string          `json:"name"`
		UserType   string          `json:"user_type"`
		Outcome    string          `json:"outcome"`
		Enterprise *enterpriseView `json:"enterprise,omitempty"`
		Apps       []appView       `json:"apps,omitempty"`
	}{
		UserID:   state.user.UserID.String(),
		Username: state.user.Username,
		Name:     state.user.Name,
		UserType: state.user.Type,
		Outcome:  state.outcome.String(),
	}

	if state.tenant != nil {
		view := enterpriseViewOf(state.tenant)
		resp.Enterprise = &view
		for _, d := range s.registry.Available(state.tenant) {
			resp.Apps = append(resp.Apps, appView{Code: d.Code, Name: d.Name, Description: d.Description, Version: d.Version})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// chooserHandler returns the set of enterprises the user may select from.
func (s *Server) chooserHandler(w http.ResponseWriter, r *http.Request) {
	state := stateFromContext(r.Context())

	set, err := s.resolver.ChooserSet(r.Context(), state.user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load enterprise chooser set")
		writeError(w, http.StatusInternalServerError, "failed to load enterprises")
		return
	}

	views := make([]enterpriseView, 0, len(set))
	for _, e := range set {
		views = append(views, enterpriseViewOf(e))
	}

	writeJSON(w, http.StatusOK, struct {
		Enterprises []enterpriseView `json:"enterprises"`
	}{Enterprises: views})
}

// selectHandler confirms an explicit enterprise choice. An invalid choice
// is a 422 with the chooser left as the next step; the session selection
// is untouched.
func (s *Server) selectHandler(w http.ResponseWriter, r *http.Request) {
	state := stateFromContext(r.Context())

	var req struct {
		EnterpriseID string `json:"enterprise_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	enterpriseID, err := uuid.Parse(req.EnterpriseID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid enterprise_id")
		return
	}

	chosen, err := s.resolver.Select(r.Context(), state.user, s.sessions.Selection(state.session), enterpriseID)
	if errors.Is(err, tenant.ErrInvalidSelection) {
		writeError(w, http.StatusUnprocessableEntity, "enterprise not selectable")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to select enterprise")
		writeError(w, http.StatusInternalServerError, "failed to select enterprise")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Enterprise enterpriseView `json:"enterprise"`
		Redirect   string         `json:"redirect"`
	}{Enterprise: enterpriseViewOf(chosen), Redirect: "/dashboard"})
}

// switchHandler clears the current selection and sends the user back to
// the chooser. The next resolution re-runs the employed-set rule, so a
// single-enterprise user bounces straight back to their only tenant.
func (s *Server) switchHandler(w http.ResponseWriter, r *http.Request) {
	state := stateFromContext(r.Context())

	if err := s.sessions.Selection(state.session).Clear(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear enterprise selection")
		writeError(w, http.StatusInternalServerError, "failed to clear selection")
		return
	}

	log.Info().
		Str("user_id", state.user.UserID.String()).
		Msg("Enterprise selection cleared for switch")

	http.Redirect(w, r, "/enterprises/select", http.StatusFound)
}

// listAppsHandler returns the apps available in the resolved tenant.
func (s *Server) listAppsHandler(w http.ResponseWriter, r *http.Request) {
	state := stateFromContext(r.Context())

	views := []appView{}
	for _, d := range s.registry.Available(state.tenant) {
		views = append(views, appView{Code: d.Code, Name: d.Name, Description: d.Description, Version: d.Version})
	}

	writeJSON(w, http.StatusOK, struct {
		Apps []appView `json:"apps"`
	}{Apps: views})
}
