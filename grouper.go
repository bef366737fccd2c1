// Package grouper is a university identity and access management engine: a
// hierarchical group registry with a materialized membership closure,
// composite groups, and resolvable privileges.
//
// Groups live in a tree of stems and hold members on list fields. Membership
// is transitive: putting a group on another group's list makes every member
// of the first an effective member of the second, and the closure keeps all
// derived rows materialized so queries never walk the graph. Composite groups
// derive their whole membership algebraically from two factor groups.
// Privileges are granted on groups and stems to subjects, to groups acting as
// subjects, or to everyone at once, and resolved through the same membership
// facts.
package grouper

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"

	"github.com/saltybeagle/grouper/internal/closure"
	"github.com/saltybeagle/grouper/internal/hooks"
	"github.com/saltybeagle/grouper/internal/namespace"
	"github.com/saltybeagle/grouper/internal/persist/fake"
	"github.com/saltybeagle/grouper/internal/privilege"
	"github.com/saltybeagle/grouper/internal/registry"
	"github.com/saltybeagle/grouper/types"
)

// New creates a Registry. Facts go to the configured persisters; any
// persister left unset falls back to an in-memory fake, and the facts it
// holds are lost on restart.
func New(ctx context.Context, opts ...RegistryOption) (types.Registry, error) {
	cfg := &RegistryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.log.GetSink() == nil {
		cfg.log = stdr.New(log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile))
	}
	if cfg.mp == nil {
		cfg.mp = fake.NewMembershipPersister(ctx)
	}
	if cfg.cp == nil {
		cfg.cp = fake.NewCompositePersister(ctx)
	}
	if cfg.gp == nil {
		cfg.gp = fake.NewGrantPersister(ctx)
	}
	if cfg.np == nil {
		cfg.np = fake.NewNamespacePersister(ctx)
	}

	cls, e := closure.New(ctx, cfg.mp, cfg.cp, cfg.log.WithName("closure"))
	if e != nil {
		return nil, fmt.Errorf("init membership closure failed: %w", e)
	}

	grants, e := privilege.New(ctx, cfg.gp, cfg.log.WithName("grants"))
	if e != nil {
		return nil, fmt.Errorf("init grant store failed: %w", e)
	}

	ns, e := namespace.New(ctx, cfg.np, cfg.log.WithName("namespace"))
	if e != nil {
		return nil, fmt.Errorf("init namespace failed: %w", e)
	}

	resolver := privilege.NewCached(privilege.NewResolver(grants, cls), cfg.log.WithName("resolver"))

	hookReg := hooks.New(cfg.log.WithName("hooks"))
	for _, reg := range cfg.hooks {
		hookReg.Register(reg.kind, reg.point, reg.hook)
	}

	return registry.New(registry.Config{
		Closure:   cls,
		Grants:    grants,
		Resolver:  resolver,
		Namespace: ns,
		Hooks:     hookReg,
		Fields:    cfg.fields,
		Log:       cfg.log,
	})
}

// WithMembershipPersister sets the persister for immediate membership edges
func WithMembershipPersister(p types.MembershipPersister) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.mp = p
	}
}

// WithCompositePersister sets the persister for composite definitions
func WithCompositePersister(p types.CompositePersister) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.cp = p
	}
}

// WithGrantPersister sets the persister for privilege grants
func WithGrantPersister(p types.GrantPersister) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.gp = p
	}
}

// WithNamespacePersister sets the persister for the stem tree and attributes
func WithNamespacePersister(p types.NamespacePersister) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.np = p
	}
}

// WithFields declares custom schema fields next to the built-in ones
func WithFields(fields ...types.Field) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.fields = append(cfg.fields, fields...)
	}
}

// WithHook registers a lifecycle hook for the entity kind and point
func WithHook(kind types.HookKind, point types.HookPoint, h types.Hook) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.hooks = append(cfg.hooks, hookRegistration{kind: kind, point: point, hook: h})
	}
}

// WithLogger sets logger for registry components
func WithLogger(l logr.Logger) RegistryOption {
	return func(cfg *RegistryConfig) {
		cfg.log = l
	}
}

type hookRegistration struct {
	kind  types.HookKind
	point types.HookPoint
	hook  types.Hook
}

// RegistryConfig works together with RegistryOption to control the
// initialization of a registry
type RegistryConfig struct {
	mp     types.MembershipPersister
	cp     types.CompositePersister
	gp     types.GrantPersister
	np     types.NamespacePersister
	fields []types.Field
	hooks  []hookRegistration
	log    logr.Logger
}

// RegistryOption controls how to init a registry
type RegistryOption func(*RegistryConfig)
