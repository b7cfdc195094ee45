package apps

import (
	"context"

	"github.com/oaklinehq/workplace/internal/models"
	"github.com/rs/zerolog/log"
)

// AdminPredicate decides whether a user administers an app within the
// resolved tenant. The tenant may be nil when no tenant context is resolved;
// predicates that need one must return false in that case, not error.
type AdminPredicate func(ctx context.Context, user *models.User, enterprise *models.Enterprise) (bool, error)

// Descriptor describes a pluggable business app registered at startup.
type Descriptor struct {
	Code         string // Unique key, e.g. "skill_assessment"
	Name         string // Display name
	Description  string
	Version      string
	Capabilities []string

	// AdminPredicate backs the app-admin authorization guard. A nil
	// predicate means nobody administers the app except system superusers.
	AdminPredicate AdminPredicate
}

// Builder collects app registrations during startup. It is not safe for
// concurrent use; registration happens once, before the server starts.
type Builder struct {
	apps  map[string]Descriptor
	order []string
}

// NewBuilder creates an empty registry builder.
func NewBuilder() *Builder {
	return &Builder{apps: make(map[string]Descriptor)}
}

// Register adds an app descriptor. Registering an app_code twice silently
// replaces the earlier descriptor (last write wins) - the overwrite is
// logged at warn level so a startup log reveals it. Callers that want
// overwrite-is-a-bug semantics must check their own codes; the registry
// keeps the historical behavior.
func (b *Builder) Register(d Descriptor) *Builder {
	if prev, exists := b.apps[d.Code]; exists {
		log.Warn().
			Str("app_code", d.Code).
			Str("previous", prev.Name).
			Str("replacement", d.Name).
			Msg("Duplicate app registration, replacing earlier descriptor")
	} else {
		b.order = append(b.order, d.Code)
	}
	b.apps[d.Code] = d
	return b
}

// Build produces the immutable registry. The builder must not be used
// afterwards.
func (b *Builder) Build() *Registry {
	apps := make(map[string]Descriptor, len(b.apps))
	for code, d := range b.apps {
		apps[code] = d
	}
	order := make([]string, len(b.order))
	copy(order, b.order)

	log.Info().Int("count", len(apps)).Msg("App registry built")

	return &Registry{apps: apps, order: order}
}

// Registry is the process-wide catalog of registered apps. It is immutable
// after Build and safe for concurrent reads; consumers receive it by
// reference, there is no ambient global lookup.
type Registry struct {
	apps  map[string]Descriptor
	order []string
}

// Get returns the descriptor registered for an app code.
func (r *Registry) Get(code string) (Descriptor, bool) {
	d, ok := r.apps[code]
	return d, ok
}

// All returns every registered descriptor in registration order.
func (r *Registry) All() []Descriptor {
	result := make([]Descriptor, 0, len(r.order))
	for _, code := range r.order {
		result = append(result, r.apps[code])
	}
	return result
}

// Available returns the apps available to an enterprise, used for menu and
// navigation construction. Per-enterprise subscription filtering is not
// implemented; every registered app is available to every tenant.
func (r *Registry) Available(enterprise *models.Enterprise) []Descriptor {
	return r.All()
}
