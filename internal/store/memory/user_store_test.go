package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

func testUser(username string) *models.User {
	now := time.Now()
	return &models.User{
		UserID:    uuid.Must(uuid.NewV7()),
		Username:  username,
		Name:      username,
		Type:      models.UserTypeEnterpriseUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUserStoreCreateAndGet(t *testing.T) {
	ctx := t.Context()
	s := NewUserStore()

	alice := testUser("alice")
	require.NoError(t, s.Create(ctx, alice))

	got, err := s.Get(ctx, alice.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Username)

	_, err = s.Get(ctx, uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestUserStoreDuplicates(t *testing.T) {
	ctx := t.Context()
	s := NewUserStore()

	alice := testUser("alice")
	require.NoError(t, s.Create(ctx, alice))
	require.ErrorIs(t, s.Create(ctx, alice), store.ErrUserAlreadyExists)

	// Same username, different ID.
	require.ErrorIs(t, s.Create(ctx, testUser("alice")), store.ErrUserAlreadyExists)
}

func TestUserStoreGetByUsername(t *testing.T) {
	ctx := t.Context()
	s := NewUserStore()

	alice := testUser("alice")
	require.NoError(t, s.Create(ctx, alice))

	got, err := s.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.UserID, got.UserID)

	// Deactivated accounts are invisible to the login lookup but still
	// loadable by ID for existing sessions to notice.
	got.IsActive = false
	require.NoError(t, s.Update(ctx, got))

	_, err = s.GetByUsername(ctx, "alice")
	require.ErrorIs(t, err, store.ErrUserNotFound)

	byID, err := s.Get(ctx, alice.UserID)
	require.NoError(t, err)
	require.False(t, byID.IsActive)
}

func TestUserStoreUpdateRename(t *testing.T) {
	ctx := t.Context()
	s := NewUserStore()

	alice := testUser("alice")
	require.NoError(t, s.Create(ctx, alice))

	alice.Username = "alice2"
	require.NoError(t, s.Update(ctx, alice))

	_, err := s.GetByUsername(ctx, "alice")
	require.ErrorIs(t, err, store.ErrUserNotFound)

	got, err := s.GetByUsername(ctx, "alice2")
	require.NoError(t, err)
	require.Equal(t, alice.UserID, got.UserID)

	require.ErrorIs(t, s.Update(ctx, testUser("ghost")), store.ErrUserNotFound)
}

func TestUserStoreReturnsClones(t *testing.T) {
	ctx := t.Context()
	s := NewUserStore()

	alice := testUser("alice")
	require.NoError(t, s.Create(ctx, alice))

	got, err := s.Get(ctx, alice.UserID)
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := s.Get(ctx, alice.UserID)
	require.NoError(t, err)
	require.Equal(t, "alice", again.Name)
}
