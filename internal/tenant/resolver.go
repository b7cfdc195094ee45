package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
	"github.com/oaklinehq/workplace/internal/telemetry"
	"github.com/rs/zerolog/log"
)

// Resolver computes the current enterprise for a request from the user's
// employment facts and the session's selection. It reads persisted state
// only; its single permitted side effects are discarding a stale session
// selection and persisting a single-enterprise auto-selection.
type Resolver struct {
	enterprises store.EnterpriseStore
	employments store.EmploymentStore
}

// NewResolver creates a tenant context resolver over the given stores.
func NewResolver(enterprises store.EnterpriseStore, employments store.EmploymentStore) *Resolver {
	return &Resolver{
		enterprises: enterprises,
		employments: employments,
	}
}

// Resolve computes the tenant context for an authenticated user.
//
// System superusers resolve through their session selection alone: a
// selection naming an existing active enterprise resolves to it, anything
// else is discarded from the session and resolves to none. Superusers hold
// no employment records.
//
// Everyone else takes the fast path when the session selection names an
// enterprise they are employed at. A selection that is stale (resigned,
// record deleted) or unknown (enterprise gone or deactivated) is discarded
// from the session - never an error - and resolution falls back to the
// employed set: zero employed enterprises resolves to none, exactly one
// resolves to it and persists the selection so the next request takes the
// fast path, more than one requires an explicit choice.
//
// The user must be non-nil; unauthenticated requests are rejected before
// resolution is attempted. Store failures surface unmodified.
func (r *Resolver) Resolve(ctx context.Context, user *models.User, sel Selection) (*models.Enterprise, Outcome, error) {
	enterprise, outcome, err := r.resolve(ctx, user, sel)
	if err != nil {
		return nil, outcome, err
	}

	telemetry.GetMetrics().RecordResolution(ctx, outcome.String())
	return enterprise, outcome, nil
}

func (r *Resolver) resolve(ctx context.Context, user *models.User, sel Selection) (*models.Enterprise, Outcome, error) {
	if user.IsSuperAdmin() {
		return r.resolveSuperuser(ctx, user, sel)
	}

	if enterpriseID, ok := sel.Selected(); ok {
		employed, err := r.employments.IsEmployedAt(ctx, user.UserID, enterpriseID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to verify session selection: %w", err)
		}
		if employed {
			enterprise, err := r.enterprises.Get(ctx, enterpriseID)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to load selected enterprise: %w", err)
			}
			return enterprise, OutcomeResolved, nil
		}

		// Stale or unknown selection: self-heal and fall through to the
		// employed-set rule. Never surfaced to the caller.
		if err := sel.Clear(ctx); err != nil {
			return nil, 0, fmt.Errorf("failed to discard stale selection: %w", err)
		}
		telemetry.GetMetrics().RecordStaleSelectionHealed(ctx)
		log.Debug().
			Str("user_id", user.UserID.String()).
			Str("enterprise_id", enterpriseID.String()).
			Msg("Discarded stale enterprise selection")
	}

	// Fetch the employed set once; both the count branch and the selected
	// member come from this snapshot so a concurrent membership change
	// cannot tear the decision.
	employed, err := r.employments.EmployedEnterprises(ctx, user.UserID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list employed enterprises: %w", err)
	}

	switch len(employed) {
	case 0:
		return nil, OutcomeUnaffiliated, nil
	case 1:
		enterprise := employed[0]
		// Persist unconditionally so the next request takes the fast path.
		if err := sel.Set(ctx, enterprise.EnterpriseID); err != nil {
			return nil, 0, fmt.Errorf("failed to persist auto-selection: %w", err)
		}
		return enterprise, OutcomeResolved, nil
	default:
		return nil, OutcomeSelectionRequired, nil
	}
}

func (r *Resolver) resolveSuperuser(ctx context.Context, user *models.User, sel Selection) (*models.Enterprise, Outcome, error) {
	enterpriseID, ok := sel.Selected()
	if !ok {
		return nil, OutcomeSelectionRequired, nil
	}

	enterprise, err := r.enterprises.Get(ctx, enterpriseID)
	if err != nil && !errors.Is(err, store.ErrEnterpriseNotFound) {
		return nil, 0, fmt.Errorf("failed to load selected enterprise: %w", err)
	}
	if err == nil && enterprise.IsActive {
		return enterprise, OutcomeResolved, nil
	}

	// Deleted or deactivated selection: heal it the same way the employed
	// path does rather than re-check a dead id on every request.
	if err := sel.Clear(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to discard stale selection: %w", err)
	}
	telemetry.GetMetrics().RecordStaleSelectionHealed(ctx)
	log.Debug().
		Str("user_id", user.UserID.String()).
		Str("enterprise_id", enterpriseID.String()).
		Msg("Discarded stale enterprise selection")

	return nil, OutcomeSelectionRequired, nil
}

// Select confirms an explicit enterprise choice. The submitted ID is
// validated against the chooser set - every active enterprise for system
// superusers, the employed set for everyone else - before being written to
// the session. An ID outside that set returns ErrInvalidSelection and
// leaves the session unchanged, so the caller stays on the chooser.
func (r *Resolver) Select(ctx context.Context, user *models.User, sel Selection, enterpriseID uuid.UUID) (*models.Enterprise, error) {
	chosen, err := r.validateChoice(ctx, user, enterpriseID)
	if err != nil {
		return nil, err
	}

	if err := sel.Set(ctx, chosen.EnterpriseID); err != nil {
		return nil, fmt.Errorf("failed to persist selection: %w", err)
	}

	telemetry.GetMetrics().RecordSelection(ctx)
	log.Info().
		Str("user_id", user.UserID.String()).
		Str("enterprise_id", chosen.EnterpriseID.String()).
		Str("enterprise", chosen.Name).
		Msg("Enterprise selected")

	return chosen, nil
}

func (r *Resolver) validateChoice(ctx context.Context, user *models.User, enterpriseID uuid.UUID) (*models.Enterprise, error) {
	if user.IsSuperAdmin() {
		enterprise, err := r.enterprises.Get(ctx, enterpriseID)
		if errors.Is(err, store.ErrEnterpriseNotFound) {
			return nil, ErrInvalidSelection
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load enterprise: %w", err)
		}
		if !enterprise.IsActive {
			return nil, ErrInvalidSelection
		}
		return enterprise, nil
	}

	employed, err := r.employments.EmployedEnterprises(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employed enterprises: %w", err)
	}
	for _, enterprise := range employed {
		if enterprise.EnterpriseID == enterpriseID {
			return enterprise, nil
		}
	}
	return nil, ErrInvalidSelection
}

// ChooserSet returns the enterprises the user may select from, for the
// selection screen: every active enterprise for system superusers, the
// employed set for everyone else.
func (r *Resolver) ChooserSet(ctx context.Context, user *models.User) ([]*models.Enterprise, error) {
	if user.IsSuperAdmin() {
		return r.enterprises.ListActive(ctx)
	}
	return r.employments.EmployedEnterprises(ctx, user.UserID)
}
