package types

import "strings"

// Group is a named membership container. Its value is the full hierarchical
// name, colon delimited, reflecting containment in stems: "uni:acad:staff".
// A Group is a Member too: groups may sit on other groups' lists.
type Group string

func (g Group) String() string {
	return "group:" + string(g)
}

func (g Group) member() string {
	return g.String()
}

func (g Group) owner() string {
	return g.String()
}

// Name returns the full hierarchical name
func (g Group) Name() string {
	return string(g)
}

// Extension returns the last segment of the name
func (g Group) Extension() string {
	name := string(g)
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// ParentStem returns the stem the group lives in
func (g Group) ParentStem() Stem {
	name := string(g)
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return Stem(name[:i])
	}
	return RootStem
}

// AsSubject converts the group to a subject, so it can be granted privileges
// or be listed as a member elsewhere.
func (g Group) AsSubject() Subject {
	return Subject{ID: string(g), Type: TypeGroup, Source: GroupSource}
}

// Stem is a namespace node. Stems form a tree rooted at RootStem; every group
// and sub-stem has exactly one parent stem.
type Stem string

// RootStem is the top of the namespace tree. It always exists and can not be
// removed.
const RootStem Stem = ""

func (s Stem) String() string {
	return "stem:" + string(s)
}

func (s Stem) owner() string {
	return s.String()
}

// Name returns the full hierarchical name
func (s Stem) Name() string {
	return string(s)
}

// IsRoot tells if the stem is the root of the namespace tree
func (s Stem) IsRoot() bool {
	return s == RootStem
}

// Extension returns the last segment of the name
func (s Stem) Extension() string {
	name := string(s)
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Parent returns the containing stem
func (s Stem) Parent() Stem {
	name := string(s)
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return Stem(name[:i])
	}
	return RootStem
}

// Child builds the name of a direct child stem
func (s Stem) Child(extension string) Stem {
	if s.IsRoot() {
		return Stem(extension)
	}
	return Stem(string(s) + ":" + extension)
}

// ChildGroup builds the name of a group directly inside the stem
func (s Stem) ChildGroup(extension string) Group {
	if s.IsRoot() {
		return Group(extension)
	}
	return Group(string(s) + ":" + extension)
}
