package skillassessment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store/memory"
)

func TestAdminPredicate(t *testing.T) {
	ctx := context.Background()
	enterprises := memory.NewEnterpriseStore()
	descriptor := Descriptor(enterprises)
	require.Equal(t, AppCode, descriptor.Code)
	require.NotNil(t, descriptor.AdminPredicate)

	user := &models.User{UserID: uuid.Must(uuid.NewV7()), Username: "alice", Type: models.UserTypeEnterpriseUser}

	management := &models.Enterprise{EnterpriseID: uuid.Must(uuid.NewV7()), Name: "Assessors Inc", Code: "assessors", IsActive: true}
	training := &models.Enterprise{EnterpriseID: uuid.Must(uuid.NewV7()), Name: "Trainers Ltd", Code: "trainers", IsActive: true}
	unprofiled := &models.Enterprise{EnterpriseID: uuid.Must(uuid.NewV7()), Name: "Plain Corp", Code: "plain", IsActive: true}
	for _, e := range []*models.Enterprise{management, training, unprofiled} {
		require.NoError(t, enterprises.Create(ctx, e))
	}

	require.NoError(t, enterprises.SetAppProfile(ctx, &models.AppProfile{
		EnterpriseID: management.EnterpriseID,
		AppCode:      AppCode,
		OrgType:      OrgTypeManagement,
	}))
	require.NoError(t, enterprises.SetAppProfile(ctx, &models.AppProfile{
		EnterpriseID: training.EnterpriseID,
		AppCode:      AppCode,
		OrgType:      "training",
	}))

	t.Run("management org type administers", func(t *testing.T) {
		ok, err := descriptor.AdminPredicate(ctx, user, management)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("other org types do not", func(t *testing.T) {
		ok, err := descriptor.AdminPredicate(ctx, user, training)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("no profile means no admin", func(t *testing.T) {
		ok, err := descriptor.AdminPredicate(ctx, user, unprofiled)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("no tenant context means no admin", func(t *testing.T) {
		ok, err := descriptor.AdminPredicate(ctx, user, nil)
		require.NoError(t, err)
		require.False(t, ok)
	})
}
