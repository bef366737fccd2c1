// Package fake provides in-memory persisters for tests and for running
// without external storage. Changes are reported on a channel like a real
// store's change stream would.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/saltybeagle/grouper/types"
)

var _ types.MembershipPersister = (*membershipPersister)(nil)

type membershipPersister struct {
	mu       sync.Mutex
	policies map[types.Group]map[string]map[types.Member]struct{}
	changes  chan types.MembershipPolicyChange
}

// NewMembershipPersister creates an in-memory membership persister, optionally
// preloaded with edges
func NewMembershipPersister(ctx context.Context, init ...types.MembershipPolicy) *membershipPersister {
	p := &membershipPersister{
		policies: make(map[types.Group]map[string]map[types.Member]struct{}),
		changes:  make(chan types.MembershipPolicyChange),
	}
	for _, policy := range init {
		p.put(policy.Owner, policy.Field, policy.Member)
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *membershipPersister) put(g types.Group, field string, m types.Member) bool {
	if p.policies[g] == nil {
		p.policies[g] = make(map[string]map[types.Member]struct{})
	}
	if p.policies[g][field] == nil {
		p.policies[g][field] = make(map[types.Member]struct{})
	}
	if _, ok := p.policies[g][field][m]; ok {
		return false
	}
	p.policies[g][field][m] = struct{}{}
	return true
}

func (p *membershipPersister) Insert(g types.Group, field string, m types.Member) error {
	p.mu.Lock()
	ok := p.put(g, field, m)
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s on %s/%s", types.ErrAlreadyExists, m, g, field)
	}

	p.changes <- types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{Owner: g, Field: field, Member: m},
		Method:           types.PersistInsert,
	}
	return nil
}

func (p *membershipPersister) Remove(g types.Group, field string, m types.Member) error {
	p.mu.Lock()
	_, ok := p.policies[g][field][m]
	if ok {
		delete(p.policies[g][field], m)
	}
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s on %s/%s", types.ErrNotFound, m, g, field)
	}

	p.changes <- types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{Owner: g, Field: field, Member: m},
		Method:           types.PersistDelete,
	}
	return nil
}

func (p *membershipPersister) RemoveByOwner(g types.Group) error {
	p.mu.Lock()
	removes := make([]types.MembershipPolicy, 0)
	for field, members := range p.policies[g] {
		for m := range members {
			removes = append(removes, types.MembershipPolicy{Owner: g, Field: field, Member: m})
		}
	}
	delete(p.policies, g)
	p.mu.Unlock()

	for _, remove := range removes {
		p.changes <- types.MembershipPolicyChange{MembershipPolicy: remove, Method: types.PersistDelete}
	}
	return nil
}

func (p *membershipPersister) RemoveByMember(m types.Member) error {
	p.mu.Lock()
	removes := make([]types.MembershipPolicy, 0)
	for g, fields := range p.policies {
		for field, members := range fields {
			if _, ok := members[m]; ok {
				delete(members, m)
				removes = append(removes, types.MembershipPolicy{Owner: g, Field: field, Member: m})
			}
		}
	}
	p.mu.Unlock()

	for _, remove := range removes {
		p.changes <- types.MembershipPolicyChange{MembershipPolicy: remove, Method: types.PersistDelete}
	}
	return nil
}

func (p *membershipPersister) List() ([]types.MembershipPolicy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	policies := make([]types.MembershipPolicy, 0, len(p.policies))
	for g, fields := range p.policies {
		for field, members := range fields {
			for m := range members {
				policies = append(policies, types.MembershipPolicy{Owner: g, Field: field, Member: m})
			}
		}
	}
	return policies, nil
}

func (p *membershipPersister) Watch(ctx context.Context) (<-chan types.MembershipPolicyChange, error) {
	return p.changes, nil
}
