package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/oaklinehq/workplace/internal/auth"
)

// appAdminHandler is the admin entry point for a registered app. The app
// code comes from the path, so the guard is evaluated here instead of at
// route registration; denial behaves exactly like the middleware.
func (s *Server) appAdminHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	state := stateFromContext(ctx)
	appCode := r.PathValue("app_code")

	decision, err := s.engine.Authorize(ctx, auth.AppAdmin(appCode), state.user, state.tenant)
	if err != nil {
		log.Error().Err(err).Str("app_code", appCode).Msg("App admin check failed")
		writeError(w, http.StatusInternalServerError, "authorization check failed")
		return
	}
	if !decision.Allowed {
		http.Redirect(w, r, decision.Redirect+"?error_code="+string(decision.Reason), http.StatusFound)
		return
	}

	descriptor, ok := s.registry.Get(appCode)
	if !ok {
		// Only superusers reach this for unregistered codes.
		writeError(w, http.StatusNotFound, "unknown app")
		return
	}

	resp := struct {
		Code         string   `json:"code"`
		Name         string   `json:"name"`
		Version      string   `json:"version,omitempty"`
		Capabilities []string `json:"capabilities,omitempty"`
		Enterprise   string   `json:"enterprise,omitempty"`
	}{
		Code:         descriptor.Code,
		Name:         descriptor.Name,
		Version:      descriptor.Version,
		Capabilities: descriptor.Capabilities,
	}
	if state.tenant != nil {
		resp.Enterprise = state.tenant.Name
	}

	writeJSON(w, http.StatusOK, resp)
}
