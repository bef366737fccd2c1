// Package closure maintains the materialized membership closure: for every
// group and list field, the complete set of immediate, effective, and
// composite membership rows, updated incrementally as edges and composite
// definitions change. Queries are reads against the materialized rows, never
// graph walks.
package closure

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/types"
)

// Delta is the set of members whose group reachability changed in a mutation.
// The privilege cache uses it to invalidate affected entries.
type Delta map[types.Member]struct{}

// listKey addresses one membership list: a group's list field
type listKey struct {
	owner types.Group
	field string
}

// Closure computes and incrementally maintains membership rows. Writers own
// the effective and composite rows exclusively: callers only ever request
// immediate mutations or composite bind/unbind, the engine derives the rest.
type Closure interface {
	ClosureWriter
	ClosureReader
}

// ClosureWriter mutates the closure
type ClosureWriter interface {
	// Join adds an immediate row and propagates effective rows to every
	// group reachable from the owner
	Join(g types.Group, field string, m types.Member) (Delta, error)

	// Leave removes an immediate row and every effective row reachable only
	// through it; rows with alternate derivations stay
	Leave(g types.Group, field string, m types.Member) (Delta, error)

	// Bind makes the owner a composite group and derives its membership
	Bind(c types.Composite) (Delta, error)

	// Unbind removes the composite definition and all derived rows
	Unbind(owner types.Group) (Delta, error)

	// RemoveGroup removes the group as an owner, a member, a composite
	// owner, and a composite factor
	RemoveGroup(g types.Group) (Delta, error)

	// RemoveMember removes every immediate row listing the member
	RemoveMember(m types.Member) (Delta, error)
}

// ClosureReader answers membership queries from the materialized rows
type ClosureReader interface {
	// ImmediateMembers returns directly assigned members
	ImmediateMembers(g types.Group, field string) (map[types.Member]struct{}, error)

	// EffectiveMembers returns derived members: transitive and composite rows
	EffectiveMembers(g types.Group, field string) (map[types.Member]struct{}, error)

	// Members returns immediate and effective members, deduplicated
	Members(g types.Group, field string) (map[types.Member]struct{}, error)

	// Memberships returns full rows with kind, via group, and depth
	Memberships(g types.Group, field string) ([]types.Membership, error)

	// GroupsOf returns every group holding the member on its default list
	GroupsOf(m types.Member) (map[types.Group]struct{}, error)

	// IsMember tells if the member is on the list, immediately or effectively
	IsMember(g types.Group, m types.Member, field string) (bool, error)

	// HasImmediate tells if an immediate row exists
	HasImmediate(g types.Group, m types.Member, field string) (bool, error)

	// CompositeOf returns the composite definition owning the group
	CompositeOf(owner types.Group) (types.Composite, error)

	// HasComposite tells if the group is owned by a composite
	HasComposite(owner types.Group) (bool, error)

	// AllGroups returns every group that owns or sits on any list
	AllGroups() (map[types.Group]struct{}, error)
}

// New creates a concurrent safe, persisted closure engine
func New(ctx context.Context, mp types.MembershipPersister, cp types.CompositePersister, log logr.Logger) (Closure, error) {
	return newPersistedClosure(ctx, newSyncedClosure(NewFatClosure()), mp, cp, log)
}

// NewVolatile creates a concurrent safe closure engine without persistence,
// everything is lost on restart
func NewVolatile() Closure {
	return newSyncedClosure(NewFatClosure())
}
