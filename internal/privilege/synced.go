package privilege

import (
	"sync"

	"github.com/saltybeagle/grouper/types"
)

var _ Grants = (*syncedGrants)(nil)

// syncedGrants makes the inner grant store safe in concurrent usages
type syncedGrants struct {
	g Grants
	sync.RWMutex
}

func newSyncedGrants(g Grants) *syncedGrants {
	return &syncedGrants{g: g}
}

func (s *syncedGrants) Grant(o types.Owner, g types.Member, p types.Privilege) error {
	s.Lock()
	defer s.Unlock()
	return s.g.Grant(o, g, p)
}

func (s *syncedGrants) Revoke(o types.Owner, g types.Member, p types.Privilege) error {
	s.Lock()
	defer s.Unlock()
	return s.g.Revoke(o, g, p)
}

func (s *syncedGrants) Granted(o types.Owner, g types.Member) (types.Privilege, error) {
	s.RLock()
	defer s.RUnlock()
	return s.g.Granted(o, g)
}

func (s *syncedGrants) GrantsOn(o types.Owner) (map[types.Member]types.Privilege, error) {
	s.RLock()
	defer s.RUnlock()
	return s.g.GrantsOn(o)
}

func (s *syncedGrants) GrantsFor(g types.Member) (map[types.Owner]types.Privilege, error) {
	s.RLock()
	defer s.RUnlock()
	return s.g.GrantsFor(g)
}

func (s *syncedGrants) RemoveOwner(o types.Owner) error {
	s.Lock()
	defer s.Unlock()
	return s.g.RemoveOwner(o)
}

func (s *syncedGrants) RemoveGrantee(g types.Member) error {
	s.Lock()
	defer s.Unlock()
	return s.g.RemoveGrantee(g)
}
