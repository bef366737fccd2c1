package privilege

import (
	"github.com/saltybeagle/grouper/internal/closure"
	"github.com/saltybeagle/grouper/types"
)

// Resolver answers effective privilege queries: direct grants, wildcard
// grants, grants inherited through group membership, and implied privileges
// all folded together.
type Resolver interface {
	// Has tells if the member effectively holds the whole privilege set on
	// the owner
	Has(o types.Owner, m types.Member, p types.Privilege) (bool, error)

	// PrivilegesOf returns every privilege the member effectively holds on
	// the owner
	PrivilegesOf(o types.Owner, m types.Member) (types.Privilege, error)

	// SubjectsWith returns every member effectively holding the privilege on
	// the owner, group grantees expanded to their members
	SubjectsWith(o types.Owner, p types.Privilege) (map[types.Member]types.Privilege, error)
}

var _ Resolver = (*resolver)(nil)

type resolver struct {
	grants  Grants
	members closure.ClosureReader
}

// NewResolver creates a Resolver combining the grant store with membership
// facts from the closure engine
func NewResolver(g Grants, members closure.ClosureReader) Resolver {
	return &resolver{grants: g, members: members}
}

// implied widens a privilege set with the privileges it implies: admins hold
// every access privilege on their group, stem admins may create under their
// stem.
func implied(p types.Privilege) types.Privilege {
	if p.Includes(types.Admin) {
		p |= types.AccessPrivileges
	}
	if p.Includes(types.StemAdmin) {
		p |= types.Create
	}
	return p
}

func (r *resolver) Has(o types.Owner, m types.Member, p types.Privilege) (bool, error) {
	if m == types.Member(types.SystemSubject) {
		return true, nil
	}
	held, e := r.PrivilegesOf(o, m)
	if e != nil {
		return false, e
	}
	return held.Includes(p), nil
}

func (r *resolver) PrivilegesOf(o types.Owner, m types.Member) (types.Privilege, error) {
	held, e := r.grants.Granted(o, m)
	if e != nil {
		return 0, e
	}

	wild, e := r.grants.Granted(o, types.EverySubject)
	if e != nil {
		return 0, e
	}
	held |= wild

	groups, e := r.members.GroupsOf(m)
	if e != nil {
		return 0, e
	}
	for g := range groups {
		inherited, e := r.grants.Granted(o, g)
		if e != nil {
			return 0, e
		}
		held |= inherited
	}

	return implied(held), nil
}

func (r *resolver) SubjectsWith(o types.Owner, p types.Privilege) (map[types.Member]types.Privilege, error) {
	direct, e := r.grants.GrantsOn(o)
	if e != nil {
		return nil, e
	}

	out := make(map[types.Member]types.Privilege)
	for grantee, held := range direct {
		held = implied(held)
		if !held.Includes(p) {
			continue
		}
		out[grantee] |= held

		if g, ok := grantee.(types.Group); ok {
			members, e := r.members.Members(g, types.DefaultList)
			if e != nil {
				return nil, e
			}
			for m := range members {
				out[m] |= held
			}
		}
	}
	return out, nil
}
