// Package snapshot implements SnapshotCoordinator (spec §4.6): dispatching
// to a pluggable SnapshotProvider that creates an ephemeral VM snapshot and
// exposes host-visible mount paths, with VM sub-path translation and
// guaranteed teardown on every exit path.
package snapshot

import "context"

// Session is a provider-managed handle to one or more ephemeral mount
// points derived from a hypervisor snapshot, per spec §3.
type Session struct {
	SessionID    string
	ProviderName string
	ResourceName string
	MountPaths   []string
	Success      bool
	ErrorMessage string
}

// Provider is the capability set every pluggable snapshot backend
// implements, grounded on
// diggerhq-opencomputer/internal/sandbox/interface.go's Manager interface
// ("upper layers depend on the interface, not a concrete implementation").
type Provider interface {
	CreateSession(ctx context.Context, resourceName string) (Session, error)
	GetMountPaths(ctx context.Context, session Session) ([]string, error)
	RemoveSession(ctx context.Context, session Session) error
}

// Registry looks up a named, pluggable Provider, mirroring the
// discriminator-dispatch style of
// diggerhq-opencomputer/internal/compute/router.go.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry returns an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a named provider, overwriting any previous registration
// under the same name.
func (r *Registry) Register(name string, p Provider) {
	r.providers[name] = p
}

// Lookup returns the provider registered under name, or false if none was
// registered — which the Coordinator reports as SnapshotProviderUnknown.
func (r *Registry) Lookup(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}
