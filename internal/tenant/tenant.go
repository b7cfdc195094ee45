package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidSelection is returned when a submitted enterprise choice is not
// in the set the user is allowed to select from. The session selection is
// left unchanged.
var ErrInvalidSelection = errors.New("enterprise not selectable for this user")

// Outcome classifies the result of a tenant resolution.
type Outcome int

const (
	// OutcomeResolved means a tenant context was established.
	OutcomeResolved Outcome = iota

	// OutcomeUnaffiliated means the user holds no employed enterprise and
	// proceeds without a tenant context. Terminal for the session.
	OutcomeUnaffiliated

	// OutcomeSelectionRequired means the user must choose an enterprise
	// before tenant-scoped operations can proceed.
	OutcomeSelectionRequired
)

// String returns the outcome name for logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeUnaffiliated:
		return "unaffiliated"
	case OutcomeSelectionRequired:
		return "selection_required"
	default:
		return "unknown"
	}
}

// Selection is the session collaborator: a single optional enterprise ID
// scoped to one client session. Absence and explicit clearing are
// equivalent. Writes must be applied atomically with the rest of the
// session update and complete before the response is produced.
type Selection interface {
	// Selected returns the currently selected enterprise ID, if any.
	Selected() (uuid.UUID, bool)

	// Set writes the selected enterprise ID.
	Set(ctx context.Context, enterpriseID uuid.UUID) error

	// Clear removes the selection.
	Clear(ctx context.Context) error
}
