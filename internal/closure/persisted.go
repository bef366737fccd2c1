package closure

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/internal/persist/filter"
	"github.com/saltybeagle/grouper/types"
)

var _ Closure = (*persistedClosure)(nil)

// persistedClosure persists the immediate edges and composite definitions of
// the inner closure. Derived rows are never persisted: the inner engine
// rebuilds them from the facts on load. Writes go to the store first, so a
// store failure leaves memory untouched and the caller may retry the whole
// operation.
type persistedClosure struct {
	Closure
	memberships types.MembershipPersister
	composites  types.CompositePersister
	log         logr.Logger
}

func newPersistedClosure(ctx context.Context, inner Closure, mp types.MembershipPersister, cp types.CompositePersister, log logr.Logger) (*persistedClosure, error) {
	p := &persistedClosure{
		Closure:     inner,
		memberships: filter.NewMembershipPersister(mp),
		composites:  filter.NewCompositePersister(cp),
		log:         log,
	}
	if e := p.loadPersisted(); e != nil {
		return nil, e
	}
	if e := p.startWatching(ctx); e != nil {
		return nil, e
	}
	return p, nil
}

func (p *persistedClosure) loadPersisted() error {
	p.log.V(4).Info("load persisted membership facts")

	edges, e := p.memberships.List()
	if e != nil {
		return e
	}
	for _, edge := range edges {
		if _, e := p.Closure.Join(edge.Owner, edge.Field, edge.Member); e != nil {
			return fmt.Errorf("replay persisted edge %s -> %s: %w", edge.Member, edge.Owner, e)
		}
	}

	defs, e := p.composites.List()
	if e != nil {
		return e
	}
	for _, def := range defs {
		if _, e := p.Closure.Bind(def); e != nil {
			return fmt.Errorf("replay persisted composite on %s: %w", def.Owner, e)
		}
	}
	return nil
}

func (p *persistedClosure) startWatching(ctx context.Context) error {
	edges, e := p.memberships.Watch(ctx)
	if e != nil {
		return e
	}
	defs, e := p.composites.Watch(ctx)
	if e != nil {
		return e
	}

	go func() {
		for {
			select {
			case change := <-edges:
				if e := p.coordinateEdge(change); e != nil {
					p.log.Error(e, "coordinate membership change")
				}
			case change := <-defs:
				if e := p.coordinateComposite(change); e != nil {
					p.log.Error(e, "coordinate composite change")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (p *persistedClosure) coordinateEdge(change types.MembershipPolicyChange) error {
	p.log.V(4).Info("coordinate membership change", "change", change)

	switch change.Method {
	case types.PersistInsert:
		_, e := p.Closure.Join(change.Owner, change.Field, change.Member)
		if errors.Is(e, types.ErrAlreadyExists) {
			return nil
		}
		return e
	case types.PersistDelete:
		_, e := p.Closure.Leave(change.Owner, change.Field, change.Member)
		if errors.Is(e, types.ErrNotFound) {
			return nil
		}
		return e
	}
	return fmt.Errorf("%w: membership persister change: %s", types.ErrUnsupportedChange, change.Method)
}

func (p *persistedClosure) coordinateComposite(change types.CompositeChange) error {
	p.log.V(4).Info("coordinate composite change", "change", change)

	switch change.Method {
	case types.PersistInsert:
		_, e := p.Closure.Bind(change.Composite)
		if errors.Is(e, types.ErrCompositeConflict) {
			return nil
		}
		return e
	case types.PersistDelete:
		_, e := p.Closure.Unbind(change.Owner)
		if errors.Is(e, types.ErrNotFound) {
			return nil
		}
		return e
	}
	return fmt.Errorf("%w: composite persister change: %s", types.ErrUnsupportedChange, change.Method)
}

func (p *persistedClosure) Join(g types.Group, field string, m types.Member) (Delta, error) {
	p.log.V(4).Info("join", "group", g, "field", field, "member", m)

	if e := p.memberships.Insert(g, field, m); e != nil {
		return nil, e
	}
	delta, e := p.Closure.Join(g, field, m)
	if e != nil {
		if re := p.memberships.Remove(g, field, m); re != nil {
			p.log.Error(re, "roll back persisted join", "group", g, "member", m)
		}
		return nil, e
	}
	return delta, nil
}

func (p *persistedClosure) Leave(g types.Group, field string, m types.Member) (Delta, error) {
	p.log.V(4).Info("leave", "group", g, "field", field, "member", m)

	if e := p.memberships.Remove(g, field, m); e != nil {
		return nil, e
	}
	delta, e := p.Closure.Leave(g, field, m)
	if e != nil {
		if re := p.memberships.Insert(g, field, m); re != nil {
			p.log.Error(re, "roll back persisted leave", "group", g, "member", m)
		}
		return nil, e
	}
	return delta, nil
}

func (p *persistedClosure) Bind(c types.Composite) (Delta, error) {
	p.log.V(4).Info("bind composite", "owner", c.Owner, "op", c.Op, "left", c.Left, "right", c.Right)

	if e := p.composites.Insert(c); e != nil {
		return nil, e
	}
	delta, e := p.Closure.Bind(c)
	if e != nil {
		if re := p.composites.Remove(c.Owner); re != nil {
			p.log.Error(re, "roll back persisted bind", "owner", c.Owner)
		}
		return nil, e
	}
	return delta, nil
}

func (p *persistedClosure) Unbind(owner types.Group) (Delta, error) {
	p.log.V(4).Info("unbind composite", "owner", owner)

	def, e := p.Closure.CompositeOf(owner)
	if e != nil {
		return nil, e
	}
	if e := p.composites.Remove(owner); e != nil {
		return nil, e
	}
	delta, e := p.Closure.Unbind(owner)
	if e != nil {
		if re := p.composites.Insert(def); re != nil {
			p.log.Error(re, "roll back persisted unbind", "owner", owner)
		}
		return nil, e
	}
	return delta, nil
}

func (p *persistedClosure) RemoveGroup(g types.Group) (Delta, error) {
	p.log.V(4).Info("remove group", "group", g)

	if _, e := p.Closure.CompositeOf(g); e == nil {
		if e := p.composites.Remove(g); e != nil {
			return nil, e
		}
	}
	// composites the group factors go away with it
	defs, e := p.composites.List()
	if e != nil {
		return nil, e
	}
	for _, def := range defs {
		if def.Left == g || def.Right == g {
			if e := p.composites.Remove(def.Owner); e != nil {
				return nil, e
			}
		}
	}
	if e := p.memberships.RemoveByOwner(g); e != nil {
		return nil, e
	}
	if e := p.memberships.RemoveByMember(g); e != nil {
		return nil, e
	}
	return p.Closure.RemoveGroup(g)
}

func (p *persistedClosure) RemoveMember(m types.Member) (Delta, error) {
	p.log.V(4).Info("remove member", "member", m)

	if e := p.memberships.RemoveByMember(m); e != nil {
		return nil, e
	}
	return p.Closure.RemoveMember(m)
}
