package namespace

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/internal/persist/filter"
	"github.com/saltybeagle/grouper/types"
)

var _ Namespace = (*persisted)(nil)

// persisted persists namespace facts to an external storage. Writes go to the
// store first, so a store failure leaves memory untouched.
type persisted struct {
	Namespace
	persister types.NamespacePersister
	log       logr.Logger
}

func newPersisted(ctx context.Context, inner Namespace, np types.NamespacePersister, log logr.Logger) (*persisted, error) {
	p := &persisted{
		Namespace: inner,
		persister: filter.NewNamespacePersister(np),
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

func (p *persisted) loadPersisted() error {
	p.log.V(4).Info("load persisted namespace facts")

	facts, e := p.persister.List()
	if e != nil {
		return e
	}

	// stems before groups before attributes, parents before children
	sort.SliceStable(facts, func(i, j int) bool {
		if facts[i].Kind != facts[j].Kind {
			return kindOrder(facts[i].Kind) < kindOrder(facts[j].Kind)
		}
		return len(facts[i].Stem) < len(facts[j].Stem)
	})

	for _, fact := range facts {
		var e error
		switch fact.Kind {
		case types.NamespaceStem:
			e = p.Namespace.AddStem(fact.Stem)
		case types.NamespaceGroup:
			e = p.Namespace.AddGroup(fact.Group)
		case types.NamespaceAttribute:
			if fact.Group != "" {
				e = p.Namespace.SetAttribute(fact.Group, fact.Field, fact.Value)
			} else {
				e = p.Namespace.SetStemAttribute(fact.Stem, fact.Field, fact.Value)
			}
		}
		if e != nil {
			return fmt.Errorf("replay persisted namespace fact %v: %w", fact, e)
		}
	}
	return nil
}

func kindOrder(k types.NamespaceKind) int {
	switch k {
	case types.NamespaceStem:
		return 0
	case types.NamespaceGroup:
		return 1
	}
	return 2
}

func (p *persisted) startWatching(ctx context.Context) error {
	changes, e := p.persister.Watch(ctx)
	if e != nil {
		return e
	}

	go func() {
		for {
			select {
			case change := <-changes:
				if e := p.coordinate(change); e != nil {
					p.log.Error(e, "coordinate namespace change")
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (p *persisted) coordinate(change types.NamespacePolicyChange) error {
	p.log.V(4).Info("coordinate namespace change", "change", change)

	var e error
	switch {
	case change.Kind == types.NamespaceStem && change.Method == types.PersistInsert:
		e = p.Namespace.AddStem(change.Stem)
	case change.Kind == types.NamespaceStem && change.Method == types.PersistDelete:
		e = p.Namespace.RemoveStem(change.Stem)
	case change.Kind == types.NamespaceGroup && change.Method == types.PersistInsert:
		e = p.Namespace.AddGroup(change.Group)
	case change.Kind == types.NamespaceGroup && change.Method == types.PersistDelete:
		e = p.Namespace.RemoveGroup(change.Group)
	case change.Kind == types.NamespaceAttribute && change.Method == types.PersistUpdate:
		if change.Group != "" {
			e = p.Namespace.SetAttribute(change.Group, change.Field, change.Value)
		} else {
			e = p.Namespace.SetStemAttribute(change.Stem, change.Field, change.Value)
		}
	default:
		return fmt.Errorf("%w: namespace persister change: %s %s", types.ErrUnsupportedChange, change.Kind, change.Method)
	}
	if errors.Is(e, types.ErrAlreadyExists) || errors.Is(e, types.ErrNotFound) {
		return nil
	}
	return e
}

func (p *persisted) AddStem(st types.Stem) error {
	p.log.V(4).Info("add stem", "stem", st)

	if e := p.persister.InsertStem(st); e != nil {
		return e
	}
	if e := p.Namespace.AddStem(st); e != nil {
		if re := p.persister.RemoveStem(st); re != nil {
			p.log.Error(re, "roll back persisted stem", "stem", st)
		}
		return e
	}
	return nil
}

func (p *persisted) RemoveStem(st types.Stem) error {
	p.log.V(4).Info("remove stem", "stem", st)

	if e := p.persister.RemoveStem(st); e != nil {
		return e
	}
	if e := p.Namespace.RemoveStem(st); e != nil {
		if re := p.persister.InsertStem(st); re != nil {
			p.log.Error(re, "roll back persisted stem removal", "stem", st)
		}
		return e
	}
	return nil
}

func (p *persisted) AddGroup(g types.Group) error {
	p.log.V(4).Info("add group", "group", g)

	if e := p.persister.InsertGroup(g); e != nil {
		return e
	}
	if e := p.Namespace.AddGroup(g); e != nil {
		if re := p.persister.RemoveGroup(g); re != nil {
			p.log.Error(re, "roll back persisted group", "group", g)
		}
		return e
	}
	return nil
}

func (p *persisted) RemoveGroup(g types.Group) error {
	p.log.V(4).Info("remove group", "group", g)

	if e := p.persister.RemoveGroup(g); e != nil {
		return e
	}
	if e := p.Namespace.RemoveGroup(g); e != nil {
		if re := p.persister.InsertGroup(g); re != nil {
			p.log.Error(re, "roll back persisted group removal", "group", g)
		}
		return e
	}
	return nil
}

func (p *persisted) SetAttribute(g types.Group, field, value string) error {
	p.log.V(4).Info("set attribute", "group", g, "field", field)

	if e := p.persister.UpsertAttribute(g, field, value); e != nil {
		return e
	}
	return p.Namespace.SetAttribute(g, field, value)
}

func (p *persisted) SetStemAttribute(st types.Stem, field, value string) error {
	p.log.V(4).Info("set stem attribute", "stem", st, "field", field)

	if e := p.persister.UpsertStemAttribute(st, field, value); e != nil {
		return e
	}
	return p.Namespace.SetStemAttribute(st, field, value)
}
