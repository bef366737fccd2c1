package privilege

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/internal/persist/filter"
	"github.com/saltybeagle/grouper/types"
)

var _ Grants = (*persistedGrants)(nil)

// persistedGrants persists direct grants to an external storage. Writes go to
// the store first, so a store failure leaves memory untouched.
type persistedGrants struct {
	Grants
	persister types.GrantPersister
	log       logr.Logger
}

func newPersistedGrants(ctx context.Context, inner Grants, gp types.GrantPersister, log logr.Logger) (*persistedGrants, error) {
	p := &persistedGrants{
		Grants:    inner,
		persister: filter.NewGrantPersister(gp),
		log:       log,
	}
	if e := p.loadPersisted(); e != nil {
		return nil, e
	}
	if e := p.startWatching(ctx); e != nil {
		return nil, e
	}
	return p, nil
}

func (p *persistedGrants) loadPersisted() error {
	p.log.V(4).Info("load persisted grants")

	rows, e := p.persister.List()
	if e != nil {
		return e
	}
	for _, row := range rows {
		if e := p.Grants.Grant(row.Owner, row.Grantee, row.Privilege); e != nil {
			return fmt.Errorf("replay persisted grant on %s: %w", row.Owner, e)
		}
	}
	return nil
}

func (p *persistedGrants) startWatching(ctx context.Context) error {
	changes, e := p.persister.Watch(ctx)
	if e != nil {
		return e
	}

	go func() {
		for {
			select {
			case change := <-changes:
				if e := p.coordinate(change); e != nil {
					p.log.Error(e, "coordinate grant change")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (p *persistedGrants) coordinate(change types.GrantPolicyChange) error {
	p.log.V(4).Info("coordinate grant change", "change", change)

	switch change.Method {
	case types.PersistInsert, types.PersistUpdate:
		// the persisted row is the grantee's whole set, replace ours
		held, e := p.Grants.Granted(change.Owner, change.Grantee)
		if e != nil {
			return e
		}
		if gone := held.Difference(change.Privilege); gone != 0 {
			if e := p.Grants.Revoke(change.Owner, change.Grantee, gone); e != nil {
				return e
			}
		}
		return p.Grants.Grant(change.Owner, change.Grantee, change.Privilege)
	case types.PersistDelete:
		held, e := p.Grants.Granted(change.Owner, change.Grantee)
		if e != nil {
			return e
		}
		if held == 0 {
			return nil
		}
		return p.Grants.Revoke(change.Owner, change.Grantee, held)
	}
	return fmt.Errorf("%w: grant persister change: %s", types.ErrUnsupportedChange, change.Method)
}

func (p *persistedGrants) Grant(o types.Owner, g types.Member, priv types.Privilege) error {
	p.log.V(4).Info("grant", "owner", o, "grantee", g, "privilege", priv)

	held, e := p.Grants.Granted(o, g)
	if e != nil {
		return e
	}
	if e := p.persister.Upsert(o, g, held|priv); e != nil {
		return e
	}
	return p.Grants.Grant(o, g, priv)
}

func (p *persistedGrants) Revoke(o types.Owner, g types.Member, priv types.Privilege) error {
	p.log.V(4).Info("revoke", "owner", o, "grantee", g, "privilege", priv)

	held, e := p.Grants.Granted(o, g)
	if e != nil {
		return e
	}
	if held == 0 {
		return fmt.Errorf("%w: grant %s -[%s]-> %s", types.ErrNotFound, g, priv, o)
	}

	left := held.Difference(priv)
	if left == 0 {
		if e := p.persister.Remove(o, g); e != nil {
			return e
		}
	} else if e := p.persister.Upsert(o, g, left); e != nil {
		return e
	}

	if e := p.Grants.Revoke(o, g, priv); e != nil {
		if re := p.persister.Upsert(o, g, held); re != nil {
			p.log.Error(re, "roll back persisted revoke", "owner", o, "grantee", g)
		}
		return e
	}
	return nil
}

func (p *persistedGrants) RemoveOwner(o types.Owner) error {
	p.log.V(4).Info("remove grants on owner", "owner", o)

	if e := p.persister.RemoveByOwner(o); e != nil {
		return e
	}
	return p.Grants.RemoveOwner(o)
}

func (p *persistedGrants) RemoveGrantee(g types.Member) error {
	p.log.V(4).Info("remove grants held by grantee", "grantee", g)

	held, e := p.Grants.GrantsFor(g)
	if e != nil {
		return e
	}
	for o := range held {
		if e := p.persister.Remove(o, g); e != nil {
			if !errors.Is(e, types.ErrNotFound) {
				return e
			}
		}
	}
	return p.Grants.RemoveGrantee(g)
}
