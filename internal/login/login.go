// Package login implements credential authentication. A successful login
// issues a fresh session with no enterprise selection and routes the user
// according to the tenant resolution outcome.
package login

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/oaklinehq/workplace/internal/session"
	"github.com/oaklinehq/workplace/internal/store"
	"github.com/oaklinehq/workplace/internal/telemetry"
	"github.com/oaklinehq/workplace/internal/tenant"
)

// Service handles login and logout.
type Service struct {
	users    store.UserStore
	sessions *session.Manager
	resolver *tenant.Resolver
}

// NewService creates a login service.
func NewService(users store.UserStore, sessions *session.Manager, resolver *tenant.Resolver) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		resolver: resolver,
	}
}

// LoginHandler authenticates a username/password form post. Failed
// attempts redirect back to the login page with an error code; the code
// never distinguishes a wrong password from an unknown or deactivated
// account. A successful login starts from a clean tenant state and lands
// where the resolver says: the dashboard when a tenant resolved or the
// user is unaffiliated, the chooser when a choice is required.
func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		s.loginFailed(w, r, "missing_credentials")
		return
	}

	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, store.ErrUserNotFound) {
		// Burn a hash comparison so unknown usernames cost the same as
		// wrong passwords.
		_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
		s.loginFailed(w, r, "invalid_credentials")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up user for login")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		log.Debug().Str("username", username).Msg("Password mismatch")
		s.loginFailed(w, r, "invalid_credentials")
		return
	}

	sess, err := s.sessions.Issue(ctx, w, r, user.UserID)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to issue session")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	_, outcome, err := s.resolver.Resolve(ctx, user, s.sessions.Selection(sess))
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Tenant resolution failed after login")
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("username", username).
		Str("user_id", user.UserID.String()).
		Str("outcome", outcome.String()).
		Msg("User logged in")

	switch outcome {
	case tenant.OutcomeSelectionRequired:
		http.Redirect(w, r, "/enterprises/select", http.StatusFound)
	default:
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	}
}

func (s *Service) loginFailed(w http.ResponseWriter, r *http.Request, code string) {
	telemetry.GetMetrics().RecordLoginFailure(r.Context())

	// Constant small delay keeps the failure path from being a timing
	// oracle for which check rejected the attempt.
	time.Sleep(50 * time.Millisecond)
	http.Redirect(w, r, "/login?error_code="+code, http.StatusFound)
}

// LogoutHandler destroys the session and clears the cookie. Safe to call
// without a valid session.
func (s *Service) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Destroy(r.Context(), w, r); err != nil {
		log.Warn().Err(err).Msg("Failed to destroy session on logout")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}
