package closure

import (
	"sync"

	"github.com/saltybeagle/grouper/types"
)

var _ Closure = (*syncedClosure)(nil)

// syncedClosure makes the inner closure safe in concurrent usages
type syncedClosure struct {
	c Closure
	sync.RWMutex
}

func newSyncedClosure(c Closure) *syncedClosure {
	return &syncedClosure{c: c}
}

func (s *syncedClosure) Join(g types.Group, field string, m types.Member) (Delta, error) {
	s.Lock()
	defer s.Unlock()
	return s.c.Join(g, field, m)
}

func (s *syncedClosure) Leave(g types.Group, field string, m types.Member) (Delta, error) {
	s.Lock()
	defer s.Unlock()
	return s.c.Leave(g, field, m)
}

func (s *syncedClosure) Bind(c types.Composite) (Delta, error) {
	s.Lock()
	defer s.Unlock()
	return s.c.Bind(c)
}

func (s *syncedClosure) Unbind(owner types.Group) (Delta, error) {
	s.Lock()
	defer s.Unlock()
	return s.c.Unbind(owner)
}

func (s *syncedClosure) RemoveGroup(g types.Group) (Delta, error) {
	s.Lock()
	defer s.Unlock()
	return s.c.RemoveGroup(g)
}

func (s *syncedClosure) RemoveMember(m types.Member) (Delta, error) {
	s.Lock()
	defer s.Unlock()
	return s.c.RemoveMember(m)
}

func (s *syncedClosure) ImmediateMembers(g types.Group, field string) (map[types.Member]struct{}, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.ImmediateMembers(g, field)
}

func (s *syncedClosure) EffectiveMembers(g types.Group, field string) (map[types.Member]struct{}, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.EffectiveMembers(g, field)
}

func (s *syncedClosure) Members(g types.Group, field string) (map[types.Member]struct{}, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.Members(g, field)
}

func (s *syncedClosure) Memberships(g types.Group, field string) ([]types.Membership, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.Memberships(g, field)
}

func (s *syncedClosure) GroupsOf(m types.Member) (map[types.Group]struct{}, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.GroupsOf(m)
}

func (s *syncedClosure) IsMember(g types.Group, m types.Member, field string) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.IsMember(g, m, field)
}

func (s *syncedClosure) HasImmediate(g types.Group, m types.Member, field string) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.HasImmediate(g, m, field)
}

func (s *syncedClosure) CompositeOf(owner types.Group) (types.Composite, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.CompositeOf(owner)
}

func (s *syncedClosure) HasComposite(owner types.Group) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.HasComposite(owner)
}

func (s *syncedClosure) AllGroups() (map[types.Group]struct{}, error) {
	s.RLock()
	defer s.RUnlock()
	return s.c.AllGroups()
}
