package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/oaklinehq/workplace/internal/apps"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store/memory"
)

type guardFixture struct {
	engine      *Engine
	enterprises *memory.EnterpriseStore
	employments *memory.EmploymentStore

	superuser *models.User
	admin     *models.User
	staff     *models.User
	outsider  *models.User

	tenant *models.Enterprise
	other  *models.Enterprise
}

func newGuardFixture(t *testing.T, registry *apps.Registry) *guardFixture {
	t.Helper()
	ctx := context.Background()

	f := &guardFixture{
		enterprises: memory.NewEnterpriseStore(),
	}
	f.employments = memory.NewEmploymentStore(f.enterprises)
	f.engine = NewEngine(f.employments, registry)

	f.tenant = &models.Enterprise{
		EnterpriseID: uuid.Must(uuid.NewV7()),
		Name:         "Acme Manufacturing",
		Code:         "acme",
		IsActive:     true,
	}
	f.other = &models.Enterprise{
		EnterpriseID: uuid.Must(uuid.NewV7()),
		Name:         "Beta Logistics",
		Code:         "beta",
		IsActive:     true,
	}
	require.NoError(t, f.enterprises.Create(ctx, f.tenant))
	require.NoError(t, f.enterprises.Create(ctx, f.other))

	f.superuser = &models.User{UserID: uuid.Must(uuid.NewV7()), Username: "root", Type: models.UserTypeSuperAdmin, IsActive: true}
	f.admin = &models.User{UserID: uuid.Must(uuid.NewV7()), Username: "alice", Type: models.UserTypeEnterpriseUser, IsActive: true}
	f.staff = &models.User{UserID: uuid.Must(uuid.NewV7()), Username: "bob", Type: models.UserTypeEnterpriseUser, IsActive: true}
	f.outsider = &models.User{UserID: uuid.Must(uuid.NewV7()), Username: "carol", Type: models.UserTypeIndependentUser, IsActive: true}

	employ := func(user *models.User, enterprise *models.Enterprise) {
		require.NoError(t, f.employments.CreateEmployment(ctx, &models.Employment{
			UserID:       user.UserID,
			EnterpriseID: enterprise.EnterpriseID,
			Status:       models.EmploymentStatusEmployed,
		}))
	}

	employ(f.admin, f.tenant)
	require.NoError(t, f.employments.AssignRole(ctx, f.admin.UserID, f.tenant.EnterpriseID, models.RoleEnterpriseAdmin))

	employ(f.staff, f.tenant)
	require.NoError(t, f.employments.AssignRole(ctx, f.staff.UserID, f.tenant.EnterpriseID, models.RoleRegularStaff))

	// Admin of other enterprise only, to prove roles do not travel.
	employ(f.staff, f.other)
	require.NoError(t, f.employments.AssignRole(ctx, f.staff.UserID, f.other.EnterpriseID, models.RoleEnterpriseAdmin))

	return f
}

func TestAuthorizeUnauthenticated(t *testing.T) {
	f := newGuardFixture(t, apps.NewBuilder().Build())
	ctx := context.Background()

	guards := []Guard{
		Authenticated(),
		SystemSuperuser(),
		TenantRequired(),
		EnterpriseAdmin(),
		AppAdmin("skill_assessment"),
		All(TenantRequired(), EnterpriseAdmin()),
	}

	for _, guard := range guards {
		t.Run(guard.Name(), func(t *testing.T) {
			decision, err := f.engine.Authorize(ctx, guard, nil, f.tenant)
			require.NoError(t, err)
			require.False(t, decision.Allowed)
			require.Equal(t, ReasonAuthenticationRequired, decision.Reason)
			require.Equal(t, RedirectLogin, decision.Redirect)
		})
	}
}

func TestAuthenticatedGuard(t *testing.T) {
	f := newGuardFixture(t, apps.NewBuilder().Build())
	ctx := context.Background()

	decision, err := f.engine.Authorize(ctx, Authenticated(), f.outsider, nil)
	require.NoError(t, err)
	require.True(t, decision.Allowed)
}

func TestSystemSuperuserGuard(t *testing.T) {
	f := newGuardFixture(t, apps.NewBuilder().Build())
	ctx := context.Background()

	t.Run("allows superuser without tenant", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, SystemSuperuser(), f.superuser, nil)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("denies enterprise admin", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, SystemSuperuser(), f.admin, f.tenant)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonInsufficientRole, decision.Reason)
		require.Equal(t, RedirectDashboard, decision.Redirect)
	})
}

func TestTenantRequiredGuard(t *testing.T) {
	f := newGuardFixture(t, apps.NewBuilder().Build())
	ctx := context.Background()

	t.Run("allows with resolved tenant", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, TenantRequired(), f.staff, f.tenant)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("denies without tenant and routes to chooser", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, TenantRequired(), f.staff, nil)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonTenantRequired, decision.Reason)
		require.Equal(t, RedirectSelect, decision.Redirect)
	})
}

func TestEnterpriseAdminGuard(t *testing.T) {
	f := newGuardFixture(t, apps.NewBuilder().Build())
	ctx := context.Background()

	t.Run("allows active admin in tenant", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, EnterpriseAdmin(), f.admin, f.tenant)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("allows superuser regardless of tenant", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, EnterpriseAdmin(), f.superuser, nil)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("denies regular staff", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, EnterpriseAdmin(), f.staff, f.tenant)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonInsufficientRole, decision.Reason)
		require.Equal(t, RedirectDashboard, decision.Redirect)
	})

	t.Run("admin role in another enterprise does not count", func(t *testing.T) {
		// staff is enterprise_admin at other, regular_staff at tenant
		decision, err := f.engine.Authorize(ctx, EnterpriseAdmin(), f.staff, f.tenant)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonInsufficientRole, decision.Reason)
	})

	t.Run("denies without tenant context", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, EnterpriseAdmin(), f.admin, nil)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonTenantRequired, decision.Reason)
		require.Equal(t, RedirectSelect, decision.Redirect)
	})
}

func TestAppAdminGuard(t *testing.T) {
	ctx := context.Background()

	adminUsername := "alice"
	registry := apps.NewBuilder().
		Register(apps.Descriptor{
			Code: "skill_assessment",
			Name: "Skill Assessment",
			AdminPredicate: func(ctx context.Context, user *models.User, enterprise *models.Enterprise) (bool, error) {
				return user.Username == adminUsername, nil
			},
		}).
		Register(apps.Descriptor{
			Code: "payroll",
			Name: "Payroll",
			AdminPredicate: func(ctx context.Context, user *models.User, enterprise *models.Enterprise) (bool, error) {
				return false, errors.New("payroll backend unavailable")
			},
		}).
		Register(apps.Descriptor{
			Code: "timesheet",
			Name: "Timesheet",
		}).
		Build()

	f := newGuardFixture(t, registry)

	t.Run("allows when predicate accepts", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, AppAdmin("skill_assessment"), f.admin, f.tenant)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("denies when predicate rejects", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, AppAdmin("skill_assessment"), f.staff, f.tenant)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonInsufficientRole, decision.Reason)
	})

	t.Run("denies unregistered app", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, AppAdmin("no_such_app"), f.admin, f.tenant)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonInsufficientRole, decision.Reason)
	})

	t.Run("denies app without predicate", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, AppAdmin("timesheet"), f.admin, f.tenant)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
	})

	t.Run("superuser bypasses predicate", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, AppAdmin("no_such_app"), f.superuser, nil)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("predicate error surfaces", func(t *testing.T) {
		_, err := f.engine.Authorize(ctx, AppAdmin("payroll"), f.staff, f.tenant)
		require.Error(t, err)
		require.Contains(t, err.Error(), "payroll")
	})
}

func TestAllGuard(t *testing.T) {
	f := newGuardFixture(t, apps.NewBuilder().Build())
	ctx := context.Background()

	t.Run("allows when every guard passes", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, All(TenantRequired(), EnterpriseAdmin()), f.admin, f.tenant)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("returns first denial in order", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, All(TenantRequired(), EnterpriseAdmin()), f.staff, nil)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonTenantRequired, decision.Reason)
		require.Equal(t, RedirectSelect, decision.Redirect)
	})

	t.Run("later guards evaluated only after earlier pass", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, All(TenantRequired(), EnterpriseAdmin()), f.staff, f.tenant)
		require.NoError(t, err)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonInsufficientRole, decision.Reason)
		require.Equal(t, RedirectDashboard, decision.Redirect)
	})

	t.Run("empty conjunction allows", func(t *testing.T) {
		decision, err := f.engine.Authorize(ctx, All(), f.outsider, nil)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("name lists members", func(t *testing.T) {
		require.Equal(t, "all(tenant_required,enterprise_admin)", All(TenantRequired(), EnterpriseAdmin()).Name())
	})
}
