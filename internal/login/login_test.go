package login

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/session"
	"github.com/oaklinehq/workplace/internal/store/memory"
	"github.com/oaklinehq/workplace/internal/tenant"
)

type loginFixture struct {
	service     *Service
	manager     *session.Manager
	users       *memory.UserStore
	enterprises *memory.EnterpriseStore
	employments *memory.EmploymentStore
}

func newLoginFixture(t *testing.T) *loginFixture {
	t.Helper()

	users := memory.NewUserStore()
	enterprises := memory.NewEnterpriseStore()
	employments := memory.NewEmploymentStore(enterprises)
	sessions := memory.NewSessionStore()

	manager, err := session.NewManager(sessions, []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	resolver := tenant.NewResolver(enterprises, employments)

	return &loginFixture{
		service:     NewService(users, manager, resolver),
		manager:     manager,
		users:       users,
		enterprises: enterprises,
		employments: employments,
	}
}

func (f *loginFixture) addUser(t *testing.T, username, password, userType string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		UserID:       uuid.Must(uuid.NewV7()),
		Username:     username,
		Name:         username,
		PasswordHash: string(hash),
		Type:         userType,
		IsActive:     true,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *loginFixture) addEnterprise(t *testing.T, name, code string) *models.Enterprise {
	t.Helper()
	enterprise := &models.Enterprise{
		EnterpriseID: uuid.Must(uuid.NewV7()),
		Name:         name,
		Code:         code,
		IsActive:     true,
	}
	require.NoError(t, f.enterprises.Create(context.Background(), enterprise))
	return enterprise
}

func (f *loginFixture) employ(t *testing.T, user *models.User, enterprise *models.Enterprise) {
	t.Helper()
	require.NoError(t, f.employments.CreateEmployment(context.Background(), &models.Employment{
		UserID:       user.UserID,
		EnterpriseID: enterprise.EnterpriseID,
		Status:       models.EmploymentStatusEmployed,
	}))
}

func postLogin(t *testing.T, f *loginFixture, username, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	f.service.LoginHandler(w, r)
	return w
}

func TestLoginSuccessSingleEnterprise(t *testing.T) {
	f := newLoginFixture(t)
	alice := f.addUser(t, "alice", "s3cret", models.UserTypeEnterpriseUser)
	acme := f.addEnterprise(t, "Acme Manufacturing", "acme")
	f.employ(t, alice, acme)

	w := postLogin(t, f, "alice", "s3cret")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))

	// The session was issued and auto-selected the only enterprise.
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(cookies[0])
	sess, err := f.manager.FromRequest(context.Background(), r)
	require.NoError(t, err)
	require.Equal(t, alice.UserID, sess.UserID)

	selected, ok := sess.SelectedEnterprise()
	require.True(t, ok)
	require.Equal(t, acme.EnterpriseID, selected)
}

func TestLoginUnaffiliatedLandsOnDashboard(t *testing.T) {
	f := newLoginFixture(t)
	f.addUser(t, "carol", "s3cret", models.UserTypeIndependentUser)

	w := postLogin(t, f, "carol", "s3cret")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/dashboard", w.Header().Get("Location"))
}

func TestLoginMultipleEnterprisesRequiresChoice(t *testing.T) {
	f := newLoginFixture(t)
	alice := f.addUser(t, "alice", "s3cret", models.UserTypeEnterpriseUser)
	f.employ(t, alice, f.addEnterprise(t, "Acme Manufacturing", "acme"))
	f.employ(t, alice, f.addEnterprise(t, "Beta Logistics", "beta"))

	w := postLogin(t, f, "alice", "s3cret")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/enterprises/select", w.Header().Get("Location"))
}

func TestLoginSuperuserRequiresChoice(t *testing.T) {
	f := newLoginFixture(t)
	f.addUser(t, "root", "s3cret", models.UserTypeSuperAdmin)
	f.addEnterprise(t, "Acme Manufacturing", "acme")

	w := postLogin(t, f, "root", "s3cret")
	require.Equal(t, http.StatusFound, w.Code)
	require.Equal(t, "/enterprises/select", w.Header().Get("Location"))
}

func TestLoginFailures(t *testing.T) {
	f := newLoginFixture(t)
	f.addUser(t, "alice", "s3cret", models.UserTypeEnterpriseUser)

	t.Run("wrong password", func(t *testing.T) {
		w := postLogin(t, f, "alice", "wrong")
		require.Equal(t, http.StatusFound, w.Code)
		require.Equal(t, "/login?error_code=invalid_credentials", w.Header().Get("Location"))
		require.Empty(t, w.Result().Cookies(), "no session on failed login")
	})

	t.Run("unknown user gets the same error", func(t *testing.T) {
		w := postLogin(t, f, "nobody", "whatever")
		require.Equal(t, "/login?error_code=invalid_credentials", w.Header().Get("Location"))
	})

	t.Run("missing credentials", func(t *testing.T) {
		w := postLogin(t, f, "", "")
		require.Equal(t, "/login?error_code=missing_credentials", w.Header().Get("Location"))
	})

	t.Run("deactivated user cannot log in", func(t *testing.T) {
		bob := f.addUser(t, "bob", "s3cret", models.UserTypeEnterpriseUser)
		bob.IsActive = false
		require.NoError(t, f.users.Update(context.Background(), bob))

		w := postLogin(t, f, "bob", "s3cret")
		require.Equal(t, "/login?error_code=invalid_credentials", w.Header().Get("Location"))
	})
}

func TestLoginStartsCleanTenantState(t *testing.T) {
	f := newLoginFixture(t)
	alice := f.addUser(t, "alice", "s3cret", models.UserTypeEnterpriseUser)
	acme := f.addEnterprise(t, "Acme Manufacturing", "acme")
	f.employ(t, alice, acme)
	f.employ(t, alice, f.addEnterprise(t, "Beta Logistics", "beta"))

	// First login and an explicit selection.
	w := postLogin(t, f, "alice", "s3cret")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(w.Result().Cookies()[0])
	sess, err := f.manager.FromRequest(context.Background(), r)
	require.NoError(t, err)
	require.NoError(t, f.manager.Selection(sess).Set(context.Background(), acme.EnterpriseID))

	// A second login issues a fresh session with no selection carried over.
	w2 := postLogin(t, f, "alice", "s3cret")
	require.Equal(t, "/enterprises/select", w2.Header().Get("Location"))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(w2.Result().Cookies()[0])
	sess2, err := f.manager.FromRequest(context.Background(), r2)
	require.NoError(t, err)
	require.NotEqual(t, sess.SessionID, sess2.SessionID)
	_, ok := sess2.SelectedEnterprise()
	require.False(t, ok)
}

func TestLogout(t *testing.T) {
	f := newLoginFixture(t)
	f.addUser(t, "alice", "s3cret", models.UserTypeEnterpriseUser)

	w := postLogin(t, f, "alice", "s3cret")
	cookie := w.Result().Cookies()[0]

	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.AddCookie(cookie)
	lw := httptest.NewRecorder()
	f.service.LogoutHandler(lw, r)

	require.Equal(t, http.StatusFound, lw.Code)
	require.Equal(t, "/login", lw.Header().Get("Location"))

	// The session is gone server-side.
	r2 := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r2.AddCookie(cookie)
	_, err := f.manager.FromRequest(context.Background(), r2)
	require.ErrorIs(t, err, session.ErrInvalidSession)
}
