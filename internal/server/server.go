// Package server wires the HTTP surface: authentication, tenant
// resolution, and guard enforcement run as middleware so every handler
// executes with an established request state.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/oaklinehq/workplace/internal/apps"
	"github.com/oaklinehq/workplace/internal/auth"
	"github.com/oaklinehq/workplace/internal/login"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/session"
	"github.com/oaklinehq/workplace/internal/store"
	"github.com/oaklinehq/workplace/internal/tenant"
)

// Stores groups the persistence interfaces the server depends on.
type Stores struct {
	Users       store.UserStore
	Enterprises store.EnterpriseStore
	Employments store.EmploymentStore
}

// Server hosts the authenticated HTTP surface.
type Server struct {
	stores   Stores
	sessions *session.Manager
	resolver *tenant.Resolver
	engine   *auth.Engine
	registry *apps.Registry
	login    *login.Service
}

// NewServer creates a server over the given collaborators.
func NewServer(stores Stores, sessions *session.Manager, resolver *tenant.Resolver, engine *auth.Engine, registry *apps.Registry, loginSvc *login.Service) *Server {
	return &Server{
		stores:   stores,
		sessions: sessions,
		resolver: resolver,
		engine:   engine,
		registry: registry,
		login:    loginSvc,
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint for load balancer
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes
	mux.HandleFunc("POST /login", s.login.LoginHandler)
	mux.HandleFunc("POST /logout", s.login.LogoutHandler)

	// Authenticated routes. The guard names the requirement; denial routes
	// to login, the chooser, or the dashboard.
	mux.Handle("GET /dashboard", s.require(auth.Authenticated(), s.dashboardHandler))

	mux.Handle("GET /enterprises/select", s.require(auth.Authenticated(), s.chooserHandler))
	mux.Handle("POST /enterprises/select", s.require(auth.Authenticated(), s.selectHandler))
	mux.Handle("POST /enterprises/switch", s.require(auth.Authenticated(), s.switchHandler))

	mux.Handle("GET /apps", s.require(auth.TenantRequired(), s.listAppsHandler))
	mux.Handle("GET /apps/{app_code}/admin", s.require(auth.Authenticated(), s.appAdminHandler))

	// Staff administration, scoped to the resolved tenant.
	mux.Handle("GET /staff", s.require(auth.All(auth.TenantRequired(), auth.EnterpriseAdmin()), s.listStaffHandler))
	mux.Handle("POST /staff", s.require(auth.All(auth.TenantRequired(), auth.EnterpriseAdmin()), s.onboardStaffHandler))
	mux.Handle("PUT /staff/{user_id}/status", s.require(auth.All(auth.TenantRequired(), auth.EnterpriseAdmin()), s.setStaffStatusHandler))
	mux.Handle("PUT /staff/{user_id}/role", s.require(auth.All(auth.TenantRequired(), auth.EnterpriseAdmin()), s.setStaffRoleHandler))
	mux.Handle("DELETE /staff/{user_id}", s.require(auth.All(auth.TenantRequired(), auth.EnterpriseAdmin()), s.removeStaffHandler))

	// Platform administration, superusers only.
	mux.Handle("GET /enterprises", s.require(auth.SystemSuperuser(), s.listEnterprisesHandler))
	mux.Handle("POST /enterprises", s.require(auth.SystemSuperuser(), s.createEnterpriseHandler))
	mux.Handle("PUT /enterprises/{enterprise_id}/status", s.require(auth.SystemSuperuser(), s.setEnterpriseStatusHandler))
	mux.Handle("PUT /enterprises/{enterprise_id}/apps/{app_code}", s.require(auth.SystemSuperuser(), s.setAppProfileHandler))

	return mux
}

type contextKey string

const stateContextKey contextKey = "request_state"

// requestState is what the middleware establishes before a handler runs.
type requestState struct {
	session *models.Session
	user    *models.User
	tenant  *models.Enterprise // nil unless outcome is resolved
	outcome tenant.Outcome
}

func stateFromContext(ctx context.Context) *requestState {
	state, _ := ctx.Value(stateContextKey).(*requestState)
	return state
}

// require authenticates the request, resolves tenant context, and enforces
// the guard. The handler only runs when the guard allows; a denial is a
// redirect carrying the denial reason, never an error page.
func (s *Server) require(guard auth.Guard, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		state, err := s.establishState(ctx, r)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSession) || errors.Is(err, session.ErrExpiredSession) {
				errorCode := "invalid"
				if errors.Is(err, session.ErrExpiredSession) {
					errorCode = "expired"
				}
				http.Redirect(w, r, auth.RedirectLogin+"?error_code="+errorCode, http.StatusFound)
				return
			}
			// A store outage is not a dead session; never redirect for it.
			log.Error().Err(err).Str("path", r.URL.Path).Msg("Failed to establish request state")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		decision, err := s.engine.Authorize(ctx, guard, state.user, state.tenant)
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("Authorization check failed")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !decision.Allowed {
			log.Debug().
				Str("path", r.URL.Path).
				Str("guard", guard.Name()).
				Str("reason", string(decision.Reason)).
				Msg("Access denied")
			http.Redirect(w, r, decision.Redirect+"?error_code="+string(decision.Reason), http.StatusFound)
			return
		}

		next(w, r.WithContext(context.WithValue(ctx, stateContextKey, state)))
	})
}

// establishState loads the session and user and resolves tenant context.
// A missing or dead session returns the session error; an unauthenticated
// state is never passed through as nil-user-plus-nil-error. Store failures
// surface unmodified so the caller can tell an outage from a dead session.
func (s *Server) establishState(ctx context.Context, r *http.Request) (*requestState, error) {
	sess, err := s.sessions.FromRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	user, err := s.stores.Users.Get(ctx, sess.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, session.ErrInvalidSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user: %w", err)
	}
	if !user.IsActive {
		// A session for a deactivated account is dead.
		return nil, session.ErrInvalidSession
	}

	resolved, outcome, err := s.resolver.Resolve(ctx, user, s.sessions.Selection(sess))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve tenant context: %w", err)
	}

	return &requestState{
		session: sess,
		user:    user,
		tenant:  resolved,
		outcome: outcome,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
