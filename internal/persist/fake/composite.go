package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/saltybeagle/grouper/types"
)

var _ types.CompositePersister = (*compositePersister)(nil)

type compositePersister struct {
	mu      sync.Mutex
	defs    map[types.Group]types.Composite
	changes chan types.CompositeChange
}

// NewCompositePersister creates an in-memory composite persister
func NewCompositePersister(ctx context.Context, init ...types.Composite) *compositePersister {
	p := &compositePersister{
		defs:    make(map[types.Group]types.Composite),
		changes: make(chan types.CompositeChange),
	}
	for _, def := range init {
		p.defs[def.Owner] = def
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *compositePersister) Insert(def types.Composite) error {
	p.mu.Lock()
	_, ok := p.defs[def.Owner]
	if !ok {
		p.defs[def.Owner] = def
	}
	p.mu.Unlock()
	if ok {
		return fmt.Errorf("%w: composite on %s", types.ErrAlreadyExists, def.Owner)
	}

	p.changes <- types.CompositeChange{Composite: def, Method: types.PersistInsert}
	return nil
}

func (p *compositePersister) Remove(owner types.Group) error {
	p.mu.Lock()
	def, ok := p.defs[owner]
	if ok {
		delete(p.defs, owner)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: composite on %s", types.ErrNotFound, owner)
	}

	p.changes <- types.CompositeChange{Composite: def, Method: types.PersistDelete}
	return nil
}

func (p *compositePersister) List() ([]types.Composite, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	defs := make([]types.Composite, 0, len(p.defs))
	for _, def := range p.defs {
		defs = append(defs, def)
	}
	return defs, nil
}

func (p *compositePersister) Watch(ctx context.Context) (<-chan types.CompositeChange, error) {
	return p.changes, nil
}
