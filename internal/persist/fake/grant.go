package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/saltybeagle/grouper/types"
)

var _ types.GrantPersister = (*grantPersister)(nil)

type grantPersister struct {
	mu      sync.Mutex
	grants  map[types.Owner]map[types.Member]types.Privilege
	changes chan types.GrantPolicyChange
}

// NewGrantPersister creates an in-memory grant persister
func NewGrantPersister(ctx context.Context, init ...types.GrantPolicy) *grantPersister {
	p := &grantPersister{
		grants:  make(map[types.Owner]map[types.Member]types.Privilege),
		changes: make(chan types.GrantPolicyChange),
	}
	for _, row := range init {
		if p.grants[row.Owner] == nil {
			p.grants[row.Owner] = make(map[types.Member]types.Privilege)
		}
		p.grants[row.Owner][row.Grantee] = row.Privilege
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *grantPersister) Upsert(o types.Owner, g types.Member, priv types.Privilege) error {
	p.mu.Lock()
	if p.grants[o] == nil {
		p.grants[o] = make(map[types.Member]types.Privilege)
	}
	p.grants[o][g] = priv
	p.mu.Unlock()

	p.changes <- types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Owner: o, Grantee: g, Privilege: priv},
		Method:      types.PersistUpdate,
	}
	return nil
}

func (p *grantPersister) Remove(o types.Owner, g types.Member) error {
	p.mu.Lock()
	_, ok := p.grants[o][g]
	if ok {
		delete(p.grants[o], g)
		if len(p.grants[o]) == 0 {
			delete(p.grants, o)
		}
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: grant %s on %s", types.ErrNotFound, g, o)
	}

	p.changes <- types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Owner: o, Grantee: g},
		Method:      types.PersistDelete,
	}
	return nil
}

func (p *grantPersister) RemoveByOwner(o types.Owner) error {
	p.mu.Lock()
	removes := make([]types.GrantPolicy, 0, len(p.grants[o]))
	for g := range p.grants[o] {
		removes = append(removes, types.GrantPolicy{Owner: o, Grantee: g})
	}
	delete(p.grants, o)
	p.mu.Unlock()

	for _, remove := range removes {
		p.changes <- types.GrantPolicyChange{GrantPolicy: remove, Method: types.PersistDelete}
	}
	return nil
}

func (p *grantPersister) List() ([]types.GrantPolicy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	rows := make([]types.GrantPolicy, 0, len(p.grants))
	for o, grantees := range p.grants {
		for g, priv := range grantees {
			rows = append(rows, types.GrantPolicy{Owner: o, Grantee: g, Privilege: priv})
		}
	}
	return rows, nil
}

func (p *grantPersister) Watch(ctx context.Context) (<-chan types.GrantPolicyChange, error) {
	return p.changes, nil
}
