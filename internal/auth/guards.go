// Package auth implements layered authorization over resolved tenant
// context. Guards are a closed set of requirements evaluated against the
// authenticated user and the tenant the resolver established; handlers
// declare a guard and the engine produces a routable decision, never a
// panic.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/oaklinehq/workplace/internal/apps"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
	"github.com/oaklinehq/workplace/internal/telemetry"
)

// Reason classifies why access was denied. The zero value means access was
// allowed.
type Reason string

const (
	// ReasonAuthenticationRequired means no authenticated user was present.
	ReasonAuthenticationRequired Reason = "authentication_required"

	// ReasonTenantRequired means the guard needs a tenant context and none
	// was resolved for this request.
	ReasonTenantRequired Reason = "tenant_required"

	// ReasonInsufficientRole means the user is authenticated, and in tenant
	// context where required, but lacks the required standing.
	ReasonInsufficientRole Reason = "insufficient_role"
)

// Redirect targets for denials. A denial always routes somewhere useful:
// missing authentication goes to login, missing tenant context goes to the
// enterprise chooser, everything else lands back on the dashboard.
const (
	RedirectLogin     = "/login"
	RedirectSelect    = "/enterprises/select"
	RedirectDashboard = "/dashboard"
)

// Decision is the outcome of evaluating a guard.
type Decision struct {
	Allowed  bool
	Reason   Reason
	Redirect string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason) Decision {
	d := Decision{Allowed: false, Reason: reason}
	switch reason {
	case ReasonAuthenticationRequired:
		d.Redirect = RedirectLogin
	case ReasonTenantRequired:
		d.Redirect = RedirectSelect
	default:
		d.Redirect = RedirectDashboard
	}
	return d
}

// Guard is a requirement a request must satisfy. The set of guards is
// closed: constructors in this package are the only implementations, so a
// reviewer can enumerate every access rule the service can express.
type Guard interface {
	// Name identifies the guard in logs and metrics.
	Name() string

	evaluate(ctx context.Context, e *Engine, user *models.User, tenant *models.Enterprise) (Decision, error)
}

// Engine evaluates guards against employment facts and the app registry.
type Engine struct {
	employments store.EmploymentStore
	apps        *apps.Registry
}

// NewEngine creates an authorization engine.
func NewEngine(employments store.EmploymentStore, registry *apps.Registry) *Engine {
	return &Engine{
		employments: employments,
		apps:        registry,
	}
}

// Authorize evaluates a guard for a request. A nil user is rejected before
// any tenant or role inspection; tenant may be nil when resolution produced
// no context. Store failures surface as errors, they are not denials.
func (e *Engine) Authorize(ctx context.Context, guard Guard, user *models.User, tenant *models.Enterprise) (Decision, error) {
	var decision Decision
	if user == nil {
		decision = deny(ReasonAuthenticationRequired)
	} else {
		var err error
		decision, err = guard.evaluate(ctx, e, user, tenant)
		if err != nil {
			return Decision{}, err
		}
	}

	telemetry.GetMetrics().RecordAuthzDecision(ctx, guard.Name(), decision.Allowed, string(decision.Reason))
	return decision, nil
}

// Authenticated requires only an authenticated user. The engine enforces
// that before any guard runs, so this guard is the explicit marker for
// routes with no further requirement.
func Authenticated() Guard {
	return authenticatedGuard{}
}

type authenticatedGuard struct{}

func (authenticatedGuard) Name() string { return "authenticated" }

func (authenticatedGuard) evaluate(ctx context.Context, e *Engine, user *models.User, tenant *models.Enterprise) (Decision, error) {
	return allow(), nil
}

// SystemSuperuser requires the platform-level superuser type. No tenant
// context is consulted.
func SystemSuperuser() Guard {
	return superuserGuard{}
}

type superuserGuard struct{}

func (superuserGuard) Name() string { return "system_superuser" }

func (superuserGuard) evaluate(ctx context.Context, e *Engine, user *models.User, tenant *models.Enterprise) (Decision, error) {
	if user.IsSuperAdmin() {
		return allow(), nil
	}
	return deny(ReasonInsufficientRole), nil
}

// TenantRequired requires that a tenant context was resolved for the
// request. It makes no role demands within that tenant.
func TenantRequired() Guard {
	return tenantGuard{}
}

type tenantGuard struct{}

func (tenantGuard) Name() string { return "tenant_required" }

func (tenantGuard) evaluate(ctx context.Context, e *Engine, user *models.User, tenant *models.Enterprise) (Decision, error) {
	if tenant == nil {
		return deny(ReasonTenantRequired), nil
	}
	return allow(), nil
}

// EnterpriseAdmin requires an active enterprise_admin role assignment in
// the resolved tenant. System superusers pass unconditionally; platform
// standing outranks tenant roles. Admin standing in some other enterprise
// counts for nothing here.
func EnterpriseAdmin() Guard {
	return enterpriseAdminGuard{}
}

type enterpriseAdminGuard struct{}

func (enterpriseAdminGuard) Name() string { return "enterprise_admin" }

func (enterpriseAdminGuard) evaluate(ctx context.Context, e *Engine, user *models.User, tenant *models.Enterprise) (Decision, error) {
	if user.IsSuperAdmin() {
		return allow(), nil
	}
	if tenant == nil {
		return deny(ReasonTenantRequired), nil
	}

	isAdmin, err := e.employments.IsActiveEnterpriseAdmin(ctx, user.UserID, tenant.EnterpriseID)
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check enterprise admin role: %w", err)
	}
	if !isAdmin {
		return deny(ReasonInsufficientRole), nil
	}
	return allow(), nil
}

// AppAdmin requires admin standing for a registered app, as decided by the
// app's own predicate against the resolved tenant. System superusers pass
// unconditionally. An unregistered code or an app without a predicate
// denies; it never errors.
func AppAdmin(code string) Guard {
	return appAdminGuard{code: code}
}

type appAdminGuard struct {
	code string
}

func (g appAdminGuard) Name() string { return "app_admin:" + g.code }

func (g appAdminGuard) evaluate(ctx context.Context, e *Engine, user *models.User, tenant *models.Enterprise) (Decision, error) {
	if user.IsSuperAdmin() {
		return allow(), nil
	}

	descriptor, ok := e.apps.Get(g.code)
	if !ok || descriptor.AdminPredicate == nil {
		return deny(ReasonInsufficientRole), nil
	}

	isAdmin, err := descriptor.AdminPredicate(ctx, user, tenant)
	if err != nil {
		return Decision{}, fmt.Errorf("app admin predicate for %q failed: %w", g.code, err)
	}
	if !isAdmin {
		return deny(ReasonInsufficientRole), nil
	}
	return allow(), nil
}

// All combines guards into an ordered conjunction. Evaluation short
// circuits on the first denial, so later guards may assume earlier ones
// passed; put TenantRequired before guards that inspect the tenant.
func All(guards ...Guard) Guard {
	return allGuard{guards: guards}
}

type allGuard struct {
	guards []Guard
}

func (g allGuard) Name() string {
	names := make([]string, 0, len(g.guards))
	for _, guard := range g.guards {
		names = append(names, guard.Name())
	}
	return "all(" + strings.Join(names, ",") + ")"
}

func (g allGuard) evaluate(ctx context.Context, e *Engine, user *models.User, tenant *models.Enterprise) (Decision, error) {
	for _, guard := range g.guards {
		decision, err := guard.evaluate(ctx, e, user, tenant)
		if err != nil {
			return Decision{}, err
		}
		if !decision.Allowed {
			return decision, nil
		}
	}
	return allow(), nil
}
