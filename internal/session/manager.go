// Package session manages server-side sessions. The browser holds only a
// signed token carrying the session ID; all session state, including the
// tenant selection, lives in the session store.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/oaklinehq/workplace/internal/http"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
	"github.com/oaklinehq/workplace/internal/telemetry"
)

var (
	ErrInvalidSession = errors.New("invalid session")
	ErrExpiredSession = errors.New("session expired")
)

const cookieName = "_session"

type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager issues, validates, and destroys sessions. The cookie token is an
// HS256-signed JWT whose only payload is the session ID; revocation is a
// store delete, so a stolen token dies with the session row.
type Manager struct {
	sessions store.SessionStore
	secret   []byte
	ttl      time.Duration
}

// NewManager creates a session manager.
func NewManager(sessions store.SessionStore, secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session TTL must be greater than 0")
	}

	return &Manager{
		sessions: sessions,
		secret:   secret,
		ttl:      ttl,
	}, nil
}

// Issue creates a fresh session for a user and sets the session cookie.
// The new session carries no enterprise selection; every login starts in a
// clean tenant state.
func (m *Manager) Issue(ctx context.Context, w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Session, error) {
	clientIP := httpmiddleware.ClientIPFromContext(ctx)
	if clientIP == "" {
		clientIP = httpmiddleware.ExtractClientIP(r)
	}

	now := time.Now()
	session := &models.Session{
		SessionID:  uuid.Must(uuid.NewV7()),
		UserID:     userID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
		LastUsedAt: now,
		UserAgent:  r.UserAgent(),
		IPAddress:  clientIP,
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := m.signToken(session)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})

	telemetry.GetMetrics().RecordSessionCreated(ctx)
	return session, nil
}

// FromRequest extracts and validates the session for a request. It verifies
// the cookie token, then loads the authoritative session record from the
// store; a session deleted server-side is invalid no matter what the token
// says.
func (m *Manager) FromRequest(ctx context.Context, r *http.Request) (*models.Session, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return nil, ErrInvalidSession
	}

	sessionID, err := m.verifyToken(cookie.Value)
	if err != nil {
		return nil, err
	}

	session, err := m.sessions.Get(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, ErrInvalidSession
	}
	if errors.Is(err, store.ErrSessionExpired) {
		return nil, ErrExpiredSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if err := m.sessions.UpdateLastUsed(ctx, session.SessionID); err != nil {
		log.Warn().Err(err).Str("session_id", session.SessionID.String()).Msg("Failed to update session last-used timestamp")
	}

	return session, nil
}

// Destroy deletes the request's session and clears the cookie. A request
// with no valid session is not an error; logout is idempotent.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	session, err := m.FromRequest(ctx, r)
	if err != nil {
		return nil
	}

	if err := m.sessions.Delete(ctx, session.SessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DestroyAll deletes every session belonging to a user, for deactivation
// and logout-everywhere. Returns the number of sessions removed.
func (m *Manager) DestroyAll(ctx context.Context, userID uuid.UUID) (int, error) {
	return m.sessions.DeleteByUser(ctx, userID)
}

func (m *Manager) signToken(session *models.Session) (string, error) {
	claims := sessionClaims{
		SessionID: session.SessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *Manager) verifyToken(token string) (uuid.UUID, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, ErrExpiredSession
		}
		log.Debug().Err(err).Msg("Session token validation failed")
		return uuid.Nil, ErrInvalidSession
	}
	if !parsed.Valid {
		return uuid.Nil, ErrInvalidSession
	}

	sessionID, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return uuid.Nil, ErrInvalidSession
	}
	return sessionID, nil
}

// Selection adapts a loaded session record to the tenant resolver's
// selection collaborator. Writes go straight to the session store so they
// are durable before the response is produced; the in-memory snapshot is
// updated in step so the rest of the request sees the written value.
type Selection struct {
	sessions store.SessionStore
	session  *models.Session
}

// Selection returns the tenant-selection view of a session.
func (m *Manager) Selection(session *models.Session) *Selection {
	return &Selection{sessions: m.sessions, session: session}
}

// Selected returns the selected enterprise ID, if any.
func (s *Selection) Selected() (uuid.UUID, bool) {
	return s.session.SelectedEnterprise()
}

// Set writes the selected enterprise ID.
func (s *Selection) Set(ctx context.Context, enterpriseID uuid.UUID) error {
	if err := s.sessions.SetEnterprise(ctx, s.session.SessionID, &enterpriseID); err != nil {
		return err
	}
	id := enterpriseID
	s.session.EnterpriseID = &id
	return nil
}

// Clear removes the selection.
func (s *Selection) Clear(ctx context.Context) error {
	if err := s.sessions.SetEnterprise(ctx, s.session.SessionID, nil); err != nil {
		return err
	}
	s.session.EnterpriseID = nil
	return nil
}
