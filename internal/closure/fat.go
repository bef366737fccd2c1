package closure

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/saltybeagle/grouper/types"
)

var _ Closure = (*fatClosure)(nil)

// fatClosure is the production engine. It keeps, per list, a reference count
// of distinct derivation paths for every member, so a delete only drops rows
// whose last path disappeared. Composite memberships are flat sets derived
// from the factors' closures, fed through the same counting machinery as
// synthetic single-path rows.
type fatClosure struct {
	// real immediate edges per list
	immediate map[listKey]map[types.Member]struct{}

	// member => count of distinct derivation paths, per list
	paths map[listKey]map[types.Member]int

	// mirror of paths: member => lists it is on
	inLists map[types.Member]map[listKey]int

	// lists a group is immediately listed on; propagation fans out along these
	edgesOut map[types.Group]map[listKey]struct{}

	// composite definitions by owner, and the reverse factor index
	bound    map[types.Group]types.Composite
	factorOf map[types.Group]map[types.Group]struct{}

	// flat derived member sets of composite owners
	derived map[types.Group]map[types.Member]struct{}
}

// NewFatClosure creates the path-counted closure engine. Wrap it in a synced
// closure before sharing between goroutines.
func NewFatClosure() *fatClosure {
	return &fatClosure{
		immediate: make(map[listKey]map[types.Member]struct{}),
		paths:     make(map[listKey]map[types.Member]int),
		inLists:   make(map[types.Member]map[listKey]int),
		edgesOut:  make(map[types.Group]map[listKey]struct{}),
		bound:     make(map[types.Group]types.Composite),
		factorOf:  make(map[types.Group]map[types.Group]struct{}),
		derived:   make(map[types.Group]map[types.Member]struct{}),
	}
}

// Join implements Closure
func (f *fatClosure) Join(g types.Group, field string, m types.Member) (Delta, error) {
	k := listKey{owner: g, field: field}

	if _, ok := f.immediate[k][m]; ok {
		return nil, fmt.Errorf("%w: immediate membership %s on %s", types.ErrAlreadyExists, m, g)
	}
	if field == types.DefaultList {
		if _, ok := f.bound[g]; ok {
			return nil, fmt.Errorf("%w: %s is owned by a composite and takes no immediate members", types.ErrCompositeConflict, g)
		}
		if sub, ok := m.(types.Group); ok {
			if sub == g || f.contributes(g, sub) {
				return nil, fmt.Errorf("%w: %s would become a member of itself", types.ErrCycleDetected, g)
			}
		}
	}

	if f.immediate[k] == nil {
		f.immediate[k] = make(map[types.Member]struct{})
	}
	f.immediate[k][m] = struct{}{}
	if sub, ok := m.(types.Group); ok {
		if f.edgesOut[sub] == nil {
			f.edgesOut[sub] = make(map[listKey]struct{})
		}
		f.edgesOut[sub][k] = struct{}{}
	}

	delta := Delta{}
	dirty := make([]types.Group, 0)
	f.apply(k, f.contribution(m), +1, delta, &dirty)
	f.settle(&dirty, delta)
	return delta, nil
}

// Leave implements Closure
func (f *fatClosure) Leave(g types.Group, field string, m types.Member) (Delta, error) {
	k := listKey{owner: g, field: field}
	if _, ok := f.immediate[k][m]; !ok {
		return nil, fmt.Errorf("%w: immediate membership %s on %s", types.ErrNotFound, m, g)
	}

	delta := Delta{}
	dirty := make([]types.Group, 0)
	f.dropEdge(k, m, delta, &dirty)
	f.settle(&dirty, delta)
	return delta, nil
}

// Bind implements Closure
func (f *fatClosure) Bind(c types.Composite) (Delta, error) {
	owner := c.Owner
	if _, ok := f.bound[owner]; ok {
		return nil, fmt.Errorf("%w: %s already owned by a composite", types.ErrCompositeConflict, owner)
	}
	if len(f.immediate[listKey{owner: owner, field: types.DefaultList}]) > 0 {
		return nil, fmt.Errorf("%w: %s has immediate members on the default list", types.ErrCompositeConflict, owner)
	}
	if owner == c.Left || owner == c.Right {
		return nil, fmt.Errorf("%w: %s can not factor itself", types.ErrCycleDetected, owner)
	}
	if f.contributes(owner, c.Left) || f.contributes(owner, c.Right) {
		return nil, fmt.Errorf("%w: %s already feeds a factor", types.ErrCycleDetected, owner)
	}

	f.bound[owner] = c
	for _, factor := range []types.Group{c.Left, c.Right} {
		if f.factorOf[factor] == nil {
			f.factorOf[factor] = make(map[types.Group]struct{})
		}
		f.factorOf[factor][owner] = struct{}{}
	}

	delta := Delta{}
	dirty := make([]types.Group, 0)
	f.recompute(owner, delta, &dirty)
	f.settle(&dirty, delta)
	return delta, nil
}

// Unbind implements Closure
func (f *fatClosure) Unbind(owner types.Group) (Delta, error) {
	if _, ok := f.bound[owner]; !ok {
		return nil, fmt.Errorf("%w: no composite owns %s", types.ErrNotFound, owner)
	}

	delta := Delta{}
	dirty := make([]types.Group, 0)
	f.unbind(owner, delta, &dirty)
	f.settle(&dirty, delta)
	return delta, nil
}

// RemoveGroup implements Closure
func (f *fatClosure) RemoveGroup(g types.Group) (Delta, error) {
	delta := Delta{}
	dirty := make([]types.Group, 0)

	if _, ok := f.bound[g]; ok {
		f.unbind(g, delta, &dirty)
	}
	for owner := range f.factorOf[g] {
		f.unbind(owner, delta, &dirty)
	}

	// as a member everywhere
	for k := range f.edgesOut[g] {
		f.dropEdge(k, g, delta, &dirty)
	}

	// as an owner: every list it holds
	for k := range f.immediate {
		if k.owner != g {
			continue
		}
		for m := range f.immediate[k] {
			f.dropEdge(k, m, delta, &dirty)
		}
	}

	delete(f.edgesOut, g)
	delete(f.factorOf, g)
	f.settle(&dirty, delta)
	return delta, nil
}

// RemoveMember implements Closure
func (f *fatClosure) RemoveMember(m types.Member) (Delta, error) {
	delta := Delta{}
	dirty := make([]types.Group, 0)

	for k := range f.immediate {
		if _, ok := f.immediate[k][m]; ok {
			f.dropEdge(k, m, delta, &dirty)
		}
	}

	f.settle(&dirty, delta)
	return delta, nil
}

// ImmediateMembers implements Closure
func (f *fatClosure) ImmediateMembers(g types.Group, field string) (map[types.Member]struct{}, error) {
	k := listKey{owner: g, field: field}
	out := make(map[types.Member]struct{}, len(f.immediate[k]))
	for m := range f.immediate[k] {
		out[m] = struct{}{}
	}
	return out, nil
}

// EffectiveMembers implements Closure
func (f *fatClosure) EffectiveMembers(g types.Group, field string) (map[types.Member]struct{}, error) {
	k := listKey{owner: g, field: field}
	out := make(map[types.Member]struct{})
	for m, count := range f.paths[k] {
		direct := 0
		if _, ok := f.immediate[k][m]; ok {
			direct = 1
		}
		if count > direct {
			out[m] = struct{}{}
		}
	}
	return out, nil
}

// Members implements Closure
func (f *fatClosure) Members(g types.Group, field string) (map[types.Member]struct{}, error) {
	k := listKey{owner: g, field: field}
	out := make(map[types.Member]struct{}, len(f.paths[k]))
	for m := range f.paths[k] {
		out[m] = struct{}{}
	}
	return out, nil
}

// Memberships implements Closure
func (f *fatClosure) Memberships(g types.Group, field string) ([]types.Membership, error) {
	k := listKey{owner: g, field: field}
	rows := make([]types.Membership, 0, len(f.paths[k]))

	for m := range f.immediate[k] {
		rows = append(rows, row(g, field, m, types.KindImmediate, "", 0))
	}
	if field == types.DefaultList {
		for m := range f.derived[g] {
			rows = append(rows, row(g, field, m, types.KindComposite, "", 0))
		}
	}

	// shallowest derivation per effective member, breadth first over the
	// immediate group-in-group edges
	type hop struct {
		via   types.Group
		depth int
	}
	best := make(map[types.Member]hop)
	type item struct {
		group types.Group
		depth int
	}
	queue := make([]item, 0)
	seen := make(map[types.Group]struct{})
	for m := range f.immediate[k] {
		if sub, ok := m.(types.Group); ok {
			queue = append(queue, item{group: sub, depth: 0})
			seen[sub] = struct{}{}
		}
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		inner := listKey{owner: it.group, field: types.DefaultList}
		for m := range f.immediate[inner] {
			if _, ok := best[m]; !ok {
				best[m] = hop{via: it.group, depth: it.depth + 1}
			}
			if sub, ok := m.(types.Group); ok {
				if _, visited := seen[sub]; !visited {
					seen[sub] = struct{}{}
					queue = append(queue, item{group: sub, depth: it.depth + 1})
				}
			}
		}
		// composite rows of an inner group surface as effective members one
		// level up, but are flat: they do not expand further
		for m := range f.derived[it.group] {
			if _, ok := best[m]; !ok {
				best[m] = hop{via: it.group, depth: it.depth + 1}
			}
		}
	}

	for m, h := range best {
		rows = append(rows, row(g, field, m, types.KindEffective, h.via, h.depth))
	}
	return rows, nil
}

// GroupsOf implements Closure
func (f *fatClosure) GroupsOf(m types.Member) (map[types.Group]struct{}, error) {
	out := make(map[types.Group]struct{})
	for k := range f.inLists[m] {
		if k.field == types.DefaultList {
			out[k.owner] = struct{}{}
		}
	}
	return out, nil
}

// IsMember implements Closure
func (f *fatClosure) IsMember(g types.Group, m types.Member, field string) (bool, error) {
	return f.paths[listKey{owner: g, field: field}][m] > 0, nil
}

// HasImmediate implements Closure
func (f *fatClosure) HasImmediate(g types.Group, m types.Member, field string) (bool, error) {
	_, ok := f.immediate[listKey{owner: g, field: field}][m]
	return ok, nil
}

// CompositeOf implements Closure
func (f *fatClosure) CompositeOf(owner types.Group) (types.Composite, error) {
	c, ok := f.bound[owner]
	if !ok {
		return types.Composite{}, fmt.Errorf("%w: no composite owns %s", types.ErrNotFound, owner)
	}
	return c, nil
}

// HasComposite implements Closure
func (f *fatClosure) HasComposite(owner types.Group) (bool, error) {
	_, ok := f.bound[owner]
	return ok, nil
}

// AllGroups implements Closure
func (f *fatClosure) AllGroups() (map[types.Group]struct{}, error) {
	out := make(map[types.Group]struct{})
	for k := range f.immediate {
		out[k.owner] = struct{}{}
	}
	for g := range f.edgesOut {
		out[g] = struct{}{}
	}
	for owner := range f.bound {
		out[owner] = struct{}{}
	}
	return out, nil
}

// contribution is the path-count vector one edge from m carries into a list:
// the member itself, plus, for group members, their whole default list closure.
func (f *fatClosure) contribution(m types.Member) map[types.Member]int {
	vec := map[types.Member]int{m: 1}
	if sub, ok := m.(types.Group); ok {
		for inner, count := range f.paths[listKey{owner: sub, field: types.DefaultList}] {
			vec[inner] += count
		}
	}
	return vec
}

// apply adds or subtracts a path-count vector on a list and fans the change
// out along every list the owner is itself listed on. Default lists whose
// member set changed are queued for composite recomputation.
func (f *fatClosure) apply(k listKey, vec map[types.Member]int, sign int, delta Delta, dirty *[]types.Group) {
	changed := false
	for m, count := range vec {
		if f.paths[k] == nil {
			f.paths[k] = make(map[types.Member]int)
		}
		old := f.paths[k][m]
		now := old + sign*count
		if now <= 0 {
			delete(f.paths[k], m)
			now = 0
		} else {
			f.paths[k][m] = now
		}

		if f.inLists[m] == nil {
			f.inLists[m] = make(map[listKey]int)
		}
		if now == 0 {
			delete(f.inLists[m], k)
		} else {
			f.inLists[m][k] = now
		}

		if (old == 0) != (now == 0) {
			delta[m] = struct{}{}
			changed = true
		}
	}
	if len(f.paths[k]) == 0 {
		delete(f.paths, k)
	}

	if k.field != types.DefaultList {
		return
	}
	if changed {
		*dirty = append(*dirty, k.owner)
	}
	for out := range f.edgesOut[k.owner] {
		f.apply(out, vec, sign, delta, dirty)
	}
}

// dropEdge removes one immediate edge and its whole contribution
func (f *fatClosure) dropEdge(k listKey, m types.Member, delta Delta, dirty *[]types.Group) {
	delete(f.immediate[k], m)
	if len(f.immediate[k]) == 0 {
		delete(f.immediate, k)
	}
	if sub, ok := m.(types.Group); ok {
		delete(f.edgesOut[sub], k)
		if len(f.edgesOut[sub]) == 0 {
			delete(f.edgesOut, sub)
		}
	}
	f.apply(k, f.contribution(m), -1, delta, dirty)
}

// settle recomputes composites depending on changed default lists until no
// member set changes anymore. The contribution DAG guarantees termination.
func (f *fatClosure) settle(dirty *[]types.Group, delta Delta) {
	for len(*dirty) > 0 {
		g := (*dirty)[0]
		*dirty = (*dirty)[1:]
		for owner := range f.factorOf[g] {
			f.recompute(owner, delta, dirty)
		}
	}
}

// recompute rebuilds a composite owner's flat derived set and applies the
// difference as synthetic single-path rows
func (f *fatClosure) recompute(owner types.Group, delta Delta, dirty *[]types.Group) {
	c, ok := f.bound[owner]
	if !ok {
		return
	}

	want := f.evaluate(c)
	have := f.derived[owner]
	k := listKey{owner: owner, field: types.DefaultList}

	for m := range have {
		if _, keep := want[m]; !keep {
			delete(f.derived[owner], m)
			f.apply(k, map[types.Member]int{m: 1}, -1, delta, dirty)
		}
	}
	for m := range want {
		if _, present := have[m]; present {
			continue
		}
		if f.derived[owner] == nil {
			f.derived[owner] = make(map[types.Member]struct{})
		}
		f.derived[owner][m] = struct{}{}
		f.apply(k, map[types.Member]int{m: 1}, +1, delta, dirty)
	}
	if len(f.derived[owner]) == 0 {
		delete(f.derived, owner)
	}
}

// evaluate computes the set operation over the factors' default list closures
func (f *fatClosure) evaluate(c types.Composite) map[types.Member]struct{} {
	left := f.paths[listKey{owner: c.Left, field: types.DefaultList}]
	right := f.paths[listKey{owner: c.Right, field: types.DefaultList}]

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

	// a group never lists itself
	delete(out, c.Owner)
	return out
}

// unbind removes a composite definition and all rows derived from it
func (f *fatClosure) unbind(owner types.Group, delta Delta, dirty *[]types.Group) {
	c, ok := f.bound[owner]
	if !ok {
		return
	}

	k := listKey{owner: owner, field: types.DefaultList}
	for m := range f.derived[owner] {
		f.apply(k, map[types.Member]int{m: 1}, -1, delta, dirty)
	}
	delete(f.derived, owner)
	delete(f.bound, owner)
	for _, factor := range []types.Group{c.Left, c.Right} {
		delete(f.factorOf[factor], owner)
		if len(f.factorOf[factor]) == 0 {
			delete(f.factorOf, factor)
		}
	}
}

// contributes walks the contribution graph: immediate default-list edges and
// composite factor edges. It tells if content of "from" can ever reach "to",
// which is exactly when adding an edge from "to" into "from" would cycle.
func (f *fatClosure) contributes(from, to types.Group) bool {
	if from == to {
		return true
	}
	seen := make(map[types.Group]struct{})
	var walk func(g types.Group) bool
	walk = func(g types.Group) bool {
		if g == to {
			return true
		}
		if _, ok := seen[g]; ok {
			return false
		}
		seen[g] = struct{}{}
		for k := range f.edgesOut[g] {
			if k.field != types.DefaultList {
				continue
			}
			if walk(k.owner) {
				return true
			}
		}
		for owner := range f.factorOf[g] {
			if walk(owner) {
				return true
			}
		}
		return false
	}
	return walk(from)
}

func row(g types.Group, field string, m types.Member, kind types.MembershipKind, via types.Group, depth int) types.Membership {
	seed := g.String() + "/" + field + "/" + m.String() + "/" + string(kind)
	return types.Membership{
		ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String(),
		Owner:  g,
		Field:  field,
		Member: m,
		Kind:   kind,
		Via:    via,
		Depth:  depth,
	}
}
