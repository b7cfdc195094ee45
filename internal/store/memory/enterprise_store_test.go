package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

var _ store.EnterpriseStore = (*EnterpriseStore)(nil)

func testEnterprise(name, code string) *models.Enterprise {
	now := time.Now()
	return &models.Enterprise{
		EnterpriseID: uuid.Must(uuid.NewV7()),
		Name:         name,
		Code:         code,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestEnterpriseStoreCreateAndGet(t *testing.T) {
	ctx := t.Context()
	s := NewEnterpriseStore()

	acme := testEnterprise("Acme", "acme")
	require.NoError(t, s.Create(ctx, acme))

	got, err := s.Get(ctx, acme.EnterpriseID)
	require.NoError(t, err)
	require.Equal(t, "acme", got.Code)

	_, err = s.Get(ctx, uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, store.ErrEnterpriseNotFound)
}

func TestEnterpriseStoreUniqueNameAndCode(t *testing.T) {
	ctx := t.Context()
	s := NewEnterpriseStore()

	require.NoError(t, s.Create(ctx, testEnterprise("Acme", "acme")))
	require.ErrorIs(t, s.Create(ctx, testEnterprise("Acme", "other")), store.ErrEnterpriseAlreadyExists)
	require.ErrorIs(t, s.Create(ctx, testEnterprise("Other", "acme")), store.ErrEnterpriseAlreadyExists)
}

func TestEnterpriseStoreListActive(t *testing.T) {
	ctx := t.Context()
	s := NewEnterpriseStore()

	beta := testEnterprise("Beta", "beta")
	acme := testEnterprise("Acme", "acme")
	dormant := testEnterprise("Dormant", "dormant")
	dormant.IsActive = false

	require.NoError(t, s.Create(ctx, beta))
	require.NoError(t, s.Create(ctx, acme))
	require.NoError(t, s.Create(ctx, dormant))

	active, err := s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "Acme", active[0].Name)
	require.Equal(t, "Beta", active[1].Name)

	// Deactivation takes effect on the next list.
	acme.IsActive = false
	require.NoError(t, s.Update(ctx, acme))

	active, err = s.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "Beta", active[0].Name)
}

func TestEnterpriseStoreAppProfiles(t *testing.T) {
	ctx := t.Context()
	s := NewEnterpriseStore()

	acme := testEnterprise("Acme", "acme")
	require.NoError(t, s.Create(ctx, acme))

	_, err := s.GetAppProfile(ctx, acme.EnterpriseID, "skill_assessment")
	require.ErrorIs(t, err, store.ErrAppProfileNotFound)

	require.NoError(t, s.SetAppProfile(ctx, &models.AppProfile{
		EnterpriseID: acme.EnterpriseID,
		AppCode:      "skill_assessment",
		OrgType:      "training",
	}))

	profile, err := s.GetAppProfile(ctx, acme.EnterpriseID, "skill_assessment")
	require.NoError(t, err)
	require.Equal(t, "training", profile.OrgType)

	// SetAppProfile is an upsert.
	require.NoError(t, s.SetAppProfile(ctx, &models.AppProfile{
		EnterpriseID: acme.EnterpriseID,
		AppCode:      "skill_assessment",
		OrgType:      "management",
	}))

	profile, err = s.GetAppProfile(ctx, acme.EnterpriseID, "skill_assessment")
	require.NoError(t, err)
	require.Equal(t, "management", profile.OrgType)

	// Profiles require the enterprise to exist.
	require.ErrorIs(t, s.SetAppProfile(ctx, &models.AppProfile{
		EnterpriseID: uuid.Must(uuid.NewV7()),
		AppCode:      "skill_assessment",
		OrgType:      "management",
	}), store.ErrEnterpriseNotFound)
}
