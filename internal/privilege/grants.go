// Package privilege stores direct privilege grants and resolves effective
// privileges by combining them with membership facts from the closure engine.
package privilege

import (
	"fmt"

	"github.com/saltybeagle/grouper/types"
)

// Grants is the direct grant store: who was explicitly given what on which
// owner. Resolution logic lives in the Resolver, never here.
type Grants interface {
	// Grant adds privileges to the grantee's set on the owner
	Grant(o types.Owner, g types.Member, p types.Privilege) error

	// Revoke removes privileges from the grantee's set on the owner
	Revoke(o types.Owner, g types.Member, p types.Privilege) error

	// Granted returns the grantee's direct privilege set on the owner
	Granted(o types.Owner, g types.Member) (types.Privilege, error)

	// GrantsOn returns every grantee's direct privilege set on the owner
	GrantsOn(o types.Owner) (map[types.Member]types.Privilege, error)

	// GrantsFor returns the grantee's direct privilege sets on every owner
	GrantsFor(g types.Member) (map[types.Owner]types.Privilege, error)

	// RemoveOwner drops every grant on the owner
	RemoveOwner(o types.Owner) error

	// RemoveGrantee drops every grant held by the grantee
	RemoveGrantee(g types.Member) error
}

var _ Grants = (*thinGrants)(nil)

// thinGrants knows only direct owner-grantee-privilege relationships,
// everything in memory
type thinGrants struct {
	byOwner   map[types.Owner]map[types.Member]types.Privilege
	byGrantee map[types.Member]map[types.Owner]types.Privilege
}

func newThinGrants() *thinGrants {
	return &thinGrants{
		byOwner:   make(map[types.Owner]map[types.Member]types.Privilege),
		byGrantee: make(map[types.Member]map[types.Owner]types.Privilege),
	}
}

func (t *thinGrants) Grant(o types.Owner, g types.Member, p types.Privilege) error {
	if t.byOwner[o] == nil {
		t.byOwner[o] = make(map[types.Member]types.Privilege)
	}
	t.byOwner[o][g] |= p

	if t.byGrantee[g] == nil {
		t.byGrantee[g] = make(map[types.Owner]types.Privilege)
	}
	t.byGrantee[g][o] |= p
	return nil
}

func (t *thinGrants) Revoke(o types.Owner, g types.Member, p types.Privilege) error {
	if _, ok := t.byOwner[o][g]; !ok {
		return fmt.Errorf("%w: grant %s -[%s]-> %s", types.ErrNotFound, g, p, o)
	}

	t.byOwner[o][g] &^= p
	if t.byOwner[o][g] == 0 {
		delete(t.byOwner[o], g)
		if len(t.byOwner[o]) == 0 {
			delete(t.byOwner, o)
		}
	}

	t.byGrantee[g][o] &^= p
	if t.byGrantee[g][o] == 0 {
		delete(t.byGrantee[g], o)
		if len(t.byGrantee[g]) == 0 {
			delete(t.byGrantee, g)
		}
	}
	return nil
}

func (t *thinGrants) Granted(o types.Owner, g types.Member) (types.Privilege, error) {
	return t.byOwner[o][g], nil
}

func (t *thinGrants) GrantsOn(o types.Owner) (map[types.Member]types.Privilege, error) {
	out := make(map[types.Member]types.Privilege, len(t.byOwner[o]))
	for g, p := range t.byOwner[o] {
		out[g] = p
	}
	return out, nil
}

func (t *thinGrants) GrantsFor(g types.Member) (map[types.Owner]types.Privilege, error) {
	out := make(map[types.Owner]types.Privilege, len(t.byGrantee[g]))
	for o, p := range t.byGrantee[g] {
		out[o] = p
	}
	return out, nil
}

func (t *thinGrants) RemoveOwner(o types.Owner) error {
	for g := range t.byOwner[o] {
		delete(t.byGrantee[g], o)
		if len(t.byGrantee[g]) == 0 {
			delete(t.byGrantee, g)
		}
	}
	delete(t.byOwner, o)
	return nil
}

func (t *thinGrants) RemoveGrantee(g types.Member) error {
	for o := range t.byGrantee[g] {
		delete(t.byOwner[o], g)
		if len(t.byOwner[o]) == 0 {
			delete(t.byOwner, o)
		}
	}
	delete(t.byGrantee, g)
	return nil
}
