package namespace

import (
	"sync"

	"github.com/saltybeagle/grouper/types"
)

var _ Namespace = (*synced)(nil)

// synced makes the inner namespace safe in concurrent usages
type synced struct {
	n Namespace
	sync.RWMutex
}

func newSynced(n Namespace) *synced {
	return &synced{n: n}
}

func (s *synced) AddStem(st types.Stem) error {
	s.Lock()
	defer s.Unlock()
	return s.n.AddStem(st)
}

func (s *synced) RemoveStem(st types.Stem) error {
	s.Lock()
	defer s.Unlock()
	return s.n.RemoveStem(st)
}

func (s *synced) AddGroup(g types.Group) error {
	s.Lock()
	defer s.Unlock()
	return s.n.AddGroup(g)
}

func (s *synced) RemoveGroup(g types.Group) error {
	s.Lock()
	defer s.Unlock()
	return s.n.RemoveGroup(g)
}

func (s *synced) SetAttribute(g types.Group, field, value string) error {
	s.Lock()
	defer s.Unlock()
	return s.n.SetAttribute(g, field, value)
}

func (s *synced) SetStemAttribute(st types.Stem, field, value string) error {
	s.Lock()
	defer s.Unlock()
	return s.n.SetStemAttribute(st, field, value)
}

func (s *synced) StemAttribute(st types.Stem, field string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.StemAttribute(st, field)
}

func (s *synced) StemExists(st types.Stem) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.StemExists(st)
}

func (s *synced) GroupExists(g types.Group) (bool, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.GroupExists(g)
}

func (s *synced) Attribute(g types.Group, field string) (string, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.Attribute(g, field)
}

func (s *synced) Attributes(g types.Group) (map[string]string, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.Attributes(g)
}

func (s *synced) Children(st types.Stem) ([]types.Stem, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.Children(st)
}

func (s *synced) Groups(st types.Stem) ([]types.Group, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.Groups(st)
}

func (s *synced) AllGroups() ([]types.Group, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.AllGroups()
}

func (s *synced) AllStems() ([]types.Stem, error) {
	s.RLock()
	defer s.RUnlock()
	return s.n.AllStems()
}
