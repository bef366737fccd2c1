package closure

import (
	"fmt"

	"github.com/saltybeagle/grouper/types"
)

var _ Closure = (*slimClosure)(nil)

// slimClosure is the simplest implementation of the Closure interface. It
// stores only the facts and walks the graph on every query. It is a prototype
// of concept and the baseline the fat closure is checked against in tests.
type slimClosure struct {
	immediate map[listKey]map[types.Member]struct{}
	bound     map[types.Group]types.Composite
	factorOf  map[types.Group]map[types.Group]struct{}
	maxDepth  int
}

// NewSlimClosure creates the brute-force closure, it should not be used in
// production
func NewSlimClosure() *slimClosure {
	return &slimClosure{
		immediate: make(map[listKey]map[types.Member]struct{}),
		bound:     make(map[types.Group]types.Composite),
		factorOf:  make(map[types.Group]map[types.Group]struct{}),
		maxDepth:  10,
	}
}

// Join implements Closure
func (s *slimClosure) Join(g types.Group, field string, m types.Member) (Delta, error) {
	k := listKey{owner: g, field: field}
	if _, ok := s.immediate[k][m]; ok {
		return nil, fmt.Errorf("%w: immediate membership %s on %s", types.ErrAlreadyExists, m, g)
	}
	if field == types.DefaultList {
		if _, ok := s.bound[g]; ok {
			return nil, fmt.Errorf("%w: %s is owned by a composite and takes no immediate members", types.ErrCompositeConflict, g)
		}
		if sub, ok := m.(types.Group); ok {
			if sub == g || s.contributes(g, sub, make(map[types.Group]struct{})) {
				return nil, fmt.Errorf("%w: %s would become a member of itself", types.ErrCycleDetected, g)
			}
		}
	}

	if s.immediate[k] == nil {
		s.immediate[k] = make(map[types.Member]struct{})
	}
	s.immediate[k][m] = struct{}{}
	return Delta{}, nil
}

// Leave implements Closure
func (s *slimClosure) Leave(g types.Group, field string, m types.Member) (Delta, error) {
	k := listKey{owner: g, field: field}
	if _, ok := s.immediate[k][m]; !ok {
		return nil, fmt.Errorf("%w: immediate membership %s on %s", types.ErrNotFound, m, g)
	}
	delete(s.immediate[k], m)
	if len(s.immediate[k]) == 0 {
		delete(s.immediate, k)
	}
	return Delta{}, nil
}

// Bind implements Closure
func (s *slimClosure) Bind(c types.Composite) (Delta, error) {
	owner := c.Owner
	if _, ok := s.bound[owner]; ok {
		return nil, fmt.Errorf("%w: %s already owned by a composite", types.ErrCompositeConflict, owner)
	}
	if len(s.immediate[listKey{owner: owner, field: types.DefaultList}]) > 0 {
		return nil, fmt.Errorf("%w: %s has immediate members on the default list", types.ErrCompositeConflict, owner)
	}
	if owner == c.Left || owner == c.Right {
		return nil, fmt.Errorf("%w: %s can not factor itself", types.ErrCycleDetected, owner)
	}
	if s.contributes(owner, c.Left, make(map[types.Group]struct{})) ||
		s.contributes(owner, c.Right, make(map[types.Group]struct{})) {
		return nil, fmt.Errorf("%w: %s already feeds a factor", types.ErrCycleDetected, owner)
	}

	s.bound[owner] = c
	for _, factor := range []types.Group{c.Left, c.Right} {
		if s.factorOf[factor] == nil {
			s.factorOf[factor] = make(map[types.Group]struct{})
		}
		s.factorOf[factor][owner] = struct{}{}
	}
	return Delta{}, nil
}

// Unbind implements Closure
func (s *slimClosure) Unbind(owner types.Group) (Delta, error) {
	c, ok := s.bound[owner]
	if !ok {
		return nil, fmt.Errorf("%w: no composite owns %s", types.ErrNotFound, owner)
	}
	delete(s.bound, owner)
	for _, factor := range []types.Group{c.Left, c.Right} {
		delete(s.factorOf[factor], owner)
		if len(s.factorOf[factor]) == 0 {
			delete(s.factorOf, factor)
		}
	}
	return Delta{}, nil
}

// RemoveGroup implements Closure
func (s *slimClosure) RemoveGroup(g types.Group) (Delta, error) {
	if _, ok := s.bound[g]; ok {
		if _, e := s.Unbind(g); e != nil {
			return nil, e
		}
	}
	for owner := range s.factorOf[g] {
		if _, e := s.Unbind(owner); e != nil {
			return nil, e
		}
	}
	for k := range s.immediate {
		if k.owner == g {
			delete(s.immediate, k)
			continue
		}
		delete(s.immediate[k], g)
	}
	return Delta{}, nil
}

// RemoveMember implements Closure
func (s *slimClosure) RemoveMember(m types.Member) (Delta, error) {
	for k := range s.immediate {
		delete(s.immediate[k], m)
		if len(s.immediate[k]) == 0 {
			delete(s.immediate, k)
		}
	}
	return Delta{}, nil
}

// ImmediateMembers implements Closure
func (s *slimClosure) ImmediateMembers(g types.Group, field string) (map[types.Member]struct{}, error) {
	k := listKey{owner: g, field: field}
	out := make(map[types.Member]struct{}, len(s.immediate[k]))
	for m := range s.immediate[k] {
		out[m] = struct{}{}
	}
	return out, nil
}

// EffectiveMembers implements Closure
func (s *slimClosure) EffectiveMembers(g types.Group, field string) (map[types.Member]struct{}, error) {
	all := s.memberSet(g, field, 0)
	k := listKey{owner: g, field: field}
	for m := range s.immediate[k] {
		if !s.derivable(g, field, m) {
			delete(all, m)
		}
	}
	return all, nil
}

// Members implements Closure
func (s *slimClosure) Members(g types.Group, field string) (map[types.Member]struct{}, error) {
	return s.memberSet(g, field, 0), nil
}

// Memberships implements Closure
func (s *slimClosure) Memberships(g types.Group, field string) ([]types.Membership, error) {
	k := listKey{owner: g, field: field}
	rows := make([]types.Membership, 0)
	for m := range s.immediate[k] {
		rows = append(rows, row(g, field, m, types.KindImmediate, "", 0))
	}
	if field == types.DefaultList {
		for m := range s.derivedSet(g, 0) {
			rows = append(rows, row(g, field, m, types.KindComposite, "", 0))
		}
	}
	for m := range s.memberSet(g, field, 0) {
		if s.derivable(g, field, m) {
			rows = append(rows, row(g, field, m, types.KindEffective, "", 0))
		}
	}
	return rows, nil
}

// GroupsOf implements Closure
func (s *slimClosure) GroupsOf(m types.Member) (map[types.Group]struct{}, error) {
	out := make(map[types.Group]struct{})
	for g := range s.allOwners() {
		if _, ok := s.memberSet(g, types.DefaultList, 0)[m]; ok {
			out[g] = struct{}{}
		}
	}
	return out, nil
}

// IsMember implements Closure
func (s *slimClosure) IsMember(g types.Group, m types.Member, field string) (bool, error) {
	_, ok := s.memberSet(g, field, 0)[m]
	return ok, nil
}

// HasImmediate implements Closure
func (s *slimClosure) HasImmediate(g types.Group, m types.Member, field string) (bool, error) {
	_, ok := s.immediate[listKey{owner: g, field: field}][m]
	return ok, nil
}

// CompositeOf implements Closure
func (s *slimClosure) CompositeOf(owner types.Group) (types.Composite, error) {
	c, ok := s.bound[owner]
	if !ok {
		return types.Composite{}, fmt.Errorf("%w: no composite owns %s", types.ErrNotFound, owner)
	}
	return c, nil
}

// HasComposite implements Closure
func (s *slimClosure) HasComposite(owner types.Group) (bool, error) {
	_, ok := s.bound[owner]
	return ok, nil
}

// AllGroups implements Closure
func (s *slimClosure) AllGroups() (map[types.Group]struct{}, error) {
	return s.allOwners(), nil
}

// memberSet walks the graph: immediate members, default list closures of
// group members, and flat composite sets
func (s *slimClosure) memberSet(g types.Group, field string, depth int) map[types.Member]struct{} {
	out := make(map[types.Member]struct{})
	if depth > s.maxDepth {
		return out
	}

	if field == types.DefaultList {
		for m := range s.derivedSet(g, depth) {
			out[m] = struct{}{}
		}
	}
	for m := range s.immediate[listKey{owner: g, field: field}] {
		out[m] = struct{}{}
		if sub, ok := m.(types.Group); ok {
			for inner := range s.memberSet(sub, types.DefaultList, depth+1) {
				out[inner] = struct{}{}
			}
		}
	}
	return out
}

// derivedSet computes a composite owner's flat member set
func (s *slimClosure) derivedSet(g types.Group, depth int) map[types.Member]struct{} {
	c, ok := s.bound[g]
	if !ok || depth > s.maxDepth {
		return nil
	}

	left := s.memberSet(c.Left, types.DefaultList, depth+1)
	right := s.memberSet(c.Right, types.DefaultList, depth+1)
	out := make(map[types.Member]struct{})
	switch c.Op {
	case types.OpUnion:
		for m := range left {
			out[m] = struct{}{}
		}
		for m := range right {
			out[m] = struct{}{}
		}
	case types.OpIntersection:
		for m := range left {
			if _, ok := right[m]; ok {
				out[m] = struct{}{}
			}
		}
	case types.OpComplement:
		for m := range left {
			if _, ok := right[m]; !ok {
				out[m] = struct{}{}
			}
		}
	}
	delete(out, g)
	return out
}

// derivable tells if the member is reachable on the list without using its
// own immediate edge
func (s *slimClosure) derivable(g types.Group, field string, m types.Member) bool {
	if field == types.DefaultList {
		if _, ok := s.derivedSet(g, 0)[m]; ok {
			return true
		}
	}
	for direct := range s.immediate[listKey{owner: g, field: field}] {
		sub, ok := direct.(types.Group)
		if !ok {
			continue
		}
		if _, ok := s.memberSet(sub, types.DefaultList, 1)[m]; ok {
			return true
		}
	}
	return false
}

func (s *slimClosure) allOwners() map[types.Group]struct{} {
	out := make(map[types.Group]struct{})
	for k := range s.immediate {
		out[k.owner] = struct{}{}
	}
	for owner := range s.bound {
		out[owner] = struct{}{}
	}
	return out
}

// contributes mirrors the fat closure's cycle guard on the slim facts
func (s *slimClosure) contributes(from, to types.Group, seen map[types.Group]struct{}) bool {
	if from == to {
		return true
	}
	if _, ok := seen[from]; ok {
		return false
	}
	seen[from] = struct{}{}
	for k := range s.immediate {
		if k.field != types.DefaultList {
			continue
		}
		if _, ok := s.immediate[k][from]; ok && s.contributes(k.owner, to, seen) {
			return true
		}
	}
	for owner := range s.factorOf[from] {
		if s.contributes(owner, to, seen) {
			return true
		}
	}
	return false
}
