package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/saltybeagle/grouper/types"
)

var _ types.NamespacePersister = (*namespacePersister)(nil)

type namespacePersister struct {
	mu        sync.Mutex
	stems     map[types.Stem]struct{}
	groups    map[types.Group]struct{}
	attrs     map[types.Group]map[string]string
	stemAttrs map[types.Stem]map[string]string
	changes   chan types.NamespacePolicyChange
}

// NewNamespacePersister creates an in-memory namespace persister
func NewNamespacePersister(ctx context.Context) *namespacePersister {
	p := &namespacePersister{
		stems:     make(map[types.Stem]struct{}),
		groups:    make(map[types.Group]struct{}),
		attrs:     make(map[types.Group]map[string]string),
		stemAttrs: make(map[types.Stem]map[string]string),
		changes:   make(chan types.NamespacePolicyChange),
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *namespacePersister) InsertStem(st types.Stem) error {
	p.mu.Lock()
	_, ok := p.stems[st]
	if !ok {
		p.stems[st] = struct{}{}
	}
	p.mu.Unlock()
	if ok {
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, st)
	}

	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceStem, Stem: st},
		Method:          types.PersistInsert,
	}
	return nil
}

func (p *namespacePersister) RemoveStem(st types.Stem) error {
	p.mu.Lock()
	_, ok := p.stems[st]
	if ok {
		delete(p.stems, st)
		delete(p.stemAttrs, st)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, st)
	}

	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceStem, Stem: st},
		Method:          types.PersistDelete,
	}
	return nil
}

func (p *namespacePersister) InsertGroup(g types.Group) error {
	p.mu.Lock()
	_, ok := p.groups[g]
	if !ok {
		p.groups[g] = struct{}{}
	}
	p.mu.Unlock()
	if ok {
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, g)
	}

	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceGroup, Group: g},
		Method:          types.PersistInsert,
	}
	return nil
}

func (p *namespacePersister) RemoveGroup(g types.Group) error {
	p.mu.Lock()
	_, ok := p.groups[g]
	if ok {
		delete(p.groups, g)
		delete(p.attrs, g)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, g)
	}

	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceGroup, Group: g},
		Method:          types.PersistDelete,
	}
	return nil
}

func (p *namespacePersister) UpsertAttribute(g types.Group, field, value string) error {
	p.mu.Lock()
	if p.attrs[g] == nil {
		p.attrs[g] = make(map[string]string)
	}
	p.attrs[g][field] = value
	p.mu.Unlock()

	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceAttribute, Group: g, Field: field, Value: value},
		Method:          types.PersistUpdate,
	}
	return nil
}

func (p *namespacePersister) UpsertStemAttribute(st types.Stem, field, value string) error {
	p.mu.Lock()
	if p.stemAttrs[st] == nil {
		p.stemAttrs[st] = make(map[string]string)
	}
	p.stemAttrs[st][field] = value
	p.mu.Unlock()

	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceAttribute, Stem: st, Field: field, Value: value},
		Method:          types.PersistUpdate,
	}
	return nil
}

func (p *namespacePersister) List() ([]types.NamespacePolicy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	facts := make([]types.NamespacePolicy, 0, len(p.stems)+len(p.groups))
	for st := range p.stems {
		facts = append(facts, types.NamespacePolicy{Kind: types.NamespaceStem, Stem: st})
	}
	for g := range p.groups {
		facts = append(facts, types.NamespacePolicy{Kind: types.NamespaceGroup, Group: g})
	}
	for g, fields := range p.attrs {
		for field, value := range fields {
			facts = append(facts, types.NamespacePolicy{Kind: types.NamespaceAttribute, Group: g, Field: field, Value: value})
		}
	}
	for st, fields := range p.stemAttrs {
		for field, value := range fields {
			facts = append(facts, types.NamespacePolicy{Kind: types.NamespaceAttribute, Stem: st, Field: field, Value: value})
		}
	}
	return facts, nil
}

func (p *namespacePersister) Watch(ctx context.Context) (<-chan types.NamespacePolicyChange, error) {
	return p.changes, nil
}
