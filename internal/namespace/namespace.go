// Package namespace maintains the stem tree: which stems and groups exist,
// where they sit, and their attribute values. Membership and privileges live
// elsewhere, this package only answers existence and naming questions.
package namespace

import (
	"fmt"

	"github.com/saltybeagle/grouper/types"
)

// Namespace is the stem tree and group registry
type Namespace interface {
	NamespaceWriter
	NamespaceReader
}

// NamespaceWriter mutates the tree
type NamespaceWriter interface {
	// AddStem creates a child stem under an existing parent
	AddStem(st types.Stem) error

	// RemoveStem removes an empty stem, the root stem stays forever
	RemoveStem(st types.Stem) error

	// AddGroup creates a group under an existing parent stem
	AddGroup(g types.Group) error

	// RemoveGroup removes a group and its attributes
	RemoveGroup(g types.Group) error

	// SetAttribute writes a group attribute value
	SetAttribute(g types.Group, field, value string) error

	// SetStemAttribute writes a stem attribute value
	SetStemAttribute(st types.Stem, field, value string) error
}

// NamespaceReader answers existence and naming queries
type NamespaceReader interface {
	// StemExists tells if the stem exists
	StemExists(st types.Stem) (bool, error)

	// GroupExists tells if the group exists
	GroupExists(g types.Group) (bool, error)

	// Attribute reads a group attribute value, empty when unset
	Attribute(g types.Group, field string) (string, error)

	// Attributes returns every attribute value set on the group
	Attributes(g types.Group) (map[string]string, error)

	// StemAttribute reads a stem attribute value, empty when unset
	StemAttribute(st types.Stem, field string) (string, error)

	// Children returns the stems directly under the stem
	Children(st types.Stem) ([]types.Stem, error)

	// Groups returns the groups directly under the stem
	Groups(st types.Stem) ([]types.Group, error)

	// AllGroups returns every registered group
	AllGroups() ([]types.Group, error)

	// AllStems returns every stem including the root
	AllStems() ([]types.Stem, error)
}

var _ Namespace = (*tree)(nil)

// tree keeps the whole namespace in memory. The root stem always exists.
type tree struct {
	stems     map[types.Stem]struct{}
	groups    map[types.Group]struct{}
	attrs     map[types.Group]map[string]string
	stemAttrs map[types.Stem]map[string]string
	children  map[types.Stem]map[types.Stem]struct{}
	groupsIn  map[types.Stem]map[types.Group]struct{}
}

func newTree() *tree {
	return &tree{
		stems:     map[types.Stem]struct{}{types.RootStem: {}},
		groups:    make(map[types.Group]struct{}),
		attrs:     make(map[types.Group]map[string]string),
		stemAttrs: make(map[types.Stem]map[string]string),
		children:  make(map[types.Stem]map[types.Stem]struct{}),
		groupsIn:  make(map[types.Stem]map[types.Group]struct{}),
	}
}

func (t *tree) AddStem(st types.Stem) error {
	if _, ok := t.stems[st]; ok {
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, st)
	}
	parent := st.Parent()
	if _, ok := t.stems[parent]; !ok {
		return fmt.Errorf("%w: parent %s", types.ErrNotFound, parent)
	}

	t.stems[st] = struct{}{}
	if t.children[parent] == nil {
		t.children[parent] = make(map[types.Stem]struct{})
	}
	t.children[parent][st] = struct{}{}
	return nil
}

func (t *tree) RemoveStem(st types.Stem) error {
	if st.IsRoot() {
		return fmt.Errorf("%w: the root stem is irremovable", types.ErrSchema)
	}
	if _, ok := t.stems[st]; !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, st)
	}
	if len(t.children[st]) > 0 || len(t.groupsIn[st]) > 0 {
		return fmt.Errorf("%w: %s is not empty", types.ErrSchema, st)
	}

	delete(t.stems, st)
	delete(t.stemAttrs, st)
	delete(t.children, st)
	delete(t.groupsIn, st)
	delete(t.children[st.Parent()], st)
	return nil
}

func (t *tree) AddGroup(g types.Group) error {
	if _, ok := t.groups[g]; ok {
		return fmt.Errorf("%w: %s", types.ErrAlreadyExists, g)
	}
	parent := g.ParentStem()
	if _, ok := t.stems[parent]; !ok {
		return fmt.Errorf("%w: parent %s", types.ErrNotFound, parent)
	}

	t.groups[g] = struct{}{}
	if t.groupsIn[parent] == nil {
		t.groupsIn[parent] = make(map[types.Group]struct{})
	}
	t.groupsIn[parent][g] = struct{}{}
	return nil
}

func (t *tree) RemoveGroup(g types.Group) error {
	if _, ok := t.groups[g]; !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, g)
	}

	delete(t.groups, g)
	delete(t.attrs, g)
	delete(t.groupsIn[g.ParentStem()], g)
	return nil
}

func (t *tree) SetAttribute(g types.Group, field, value string) error {
	if _, ok := t.groups[g]; !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, g)
	}

	if t.attrs[g] == nil {
		t.attrs[g] = make(map[string]string)
	}
	t.attrs[g][field] = value
	return nil
}

func (t *tree) SetStemAttribute(st types.Stem, field, value string) error {
	if _, ok := t.stems[st]; !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, st)
	}

	if t.stemAttrs[st] == nil {
		t.stemAttrs[st] = make(map[string]string)
	}
	t.stemAttrs[st][field] = value
	return nil
}

func (t *tree) StemAttribute(st types.Stem, field string) (string, error) {
	if _, ok := t.stems[st]; !ok {
		return "", fmt.Errorf("%w: %s", types.ErrNotFound, st)
	}
	return t.stemAttrs[st][field], nil
}

func (t *tree) StemExists(st types.Stem) (bool, error) {
	_, ok := t.stems[st]
	return ok, nil
}

func (t *tree) GroupExists(g types.Group) (bool, error) {
	_, ok := t.groups[g]
	return ok, nil
}

func (t *tree) Attribute(g types.Group, field string) (string, error) {
	if _, ok := t.groups[g]; !ok {
		return "", fmt.Errorf("%w: %s", types.ErrNotFound, g)
	}
	return t.attrs[g][field], nil
}

func (t *tree) Attributes(g types.Group) (map[string]string, error) {
	if _, ok := t.groups[g]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, g)
	}
	out := make(map[string]string, len(t.attrs[g]))
	for field, value := range t.attrs[g] {
		out[field] = value
	}
	return out, nil
}

func (t *tree) Children(st types.Stem) ([]types.Stem, error) {
	if _, ok := t.stems[st]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, st)
	}
	out := make([]types.Stem, 0, len(t.children[st]))
	for child := range t.children[st] {
		out = append(out, child)
	}
	return out, nil
}

func (t *tree) Groups(st types.Stem) ([]types.Group, error) {
	if _, ok := t.stems[st]; !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, st)
	}
	out := make([]types.Group, 0, len(t.groupsIn[st]))
	for g := range t.groupsIn[st] {
		out = append(out, g)
	}
	return out, nil
}

func (t *tree) AllGroups() ([]types.Group, error) {
	out := make([]types.Group, 0, len(t.groups))
	for g := range t.groups {
		out = append(out, g)
	}
	return out, nil
}

func (t *tree) AllStems() ([]types.Stem, error) {
	out := make([]types.Stem, 0, len(t.stems))
	for st := range t.stems {
		out = append(out, st)
	}
	return out, nil
}
