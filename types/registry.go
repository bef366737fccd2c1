package types

// Registry is the top level interface for end use. It maintains the group
// namespace, the materialized membership closure, and privilege grants, and
// answers membership and privilege queries from the materialized rows without
// walking the graph.
type Registry interface {
	Memberships
	Composites
	Grants
	Namespace
}

// AddMemberConfig works together with AddMemberOption to control a member add
type AddMemberConfig struct {
	IfAbsent bool
}

// AddMemberOption controls how a member is added
type AddMemberOption func(*AddMemberConfig)

// IfAbsent makes adding an already present immediate member a silent no-op
// instead of a failure. The no-op fires no hooks and writes no rows.
func IfAbsent() AddMemberOption {
	return func(cfg *AddMemberConfig) {
		cfg.IfAbsent = true
	}
}

// Memberships manages immediate membership assignment and reads the
// materialized closure.
type Memberships interface {
	// AddMember puts member on the group's list field as an immediate member,
	// and propagates effective rows to every group the owner is a member of
	AddMember(s Session, g Group, m Member, field string, opts ...AddMemberOption) error

	// DeleteMember removes the immediate row and every effective row that was
	// reachable only through it; rows reachable via alternate paths stay
	DeleteMember(s Session, g Group, m Member, field string) error

	// ImmediateMembers returns directly assigned members of the list field
	ImmediateMembers(s Session, g Group, field string) (map[Member]struct{}, error)

	// EffectiveMembers returns derived members: transitive and composite rows
	EffectiveMembers(s Session, g Group, field string) (map[Member]struct{}, error)

	// Members returns the union of immediate and effective members, deduplicated
	Members(s Session, g Group, field string) (map[Member]struct{}, error)

	// Memberships returns the full rows for the list field, with kind, via and depth
	Memberships(s Session, g Group, field string) ([]Membership, error)

	// GroupsOf returns every group the member belongs to on the default list,
	// immediately or effectively
	GroupsOf(s Session, m Member) (map[Group]struct{}, error)

	// IsMember tells if member is on the list field, immediately or effectively
	IsMember(s Session, g Group, m Member, field string) (bool, error)
}

// Composites manages composite definitions
type Composites interface {
	// AddComposite makes owner a composite group deriving its whole
	// membership from the two factors
	AddComposite(s Session, owner Group, op CompositeOp, left, right Group) error

	// DeleteComposite removes the definition and all derived rows
	DeleteComposite(s Session, owner Group) error

	// CompositeOf returns the definition owning the group, or ErrNotFound
	CompositeOf(s Session, owner Group) (Composite, error)
}

// Grants manages privilege grants and answers privilege queries
type Grants interface {
	// Grant gives the grantee a privilege on the owner
	Grant(s Session, owner Owner, grantee Member, p Privilege) error

	// Revoke takes a granted privilege back
	Revoke(s Session, owner Owner, grantee Member, p Privilege) error

	// HasPrivilege tells if the member holds the privilege on the owner,
	// directly, through group membership, through the wildcard subject, or by
	// Admin implication. It never fails for "no": it returns false.
	HasPrivilege(s Session, owner Owner, m Member, p Privilege) (bool, error)

	// PrivilegesOf returns the union of privileges the member holds on the owner
	PrivilegesOf(s Session, owner Owner, m Member) (Privilege, error)

	// SubjectsWith returns every grantee holding the privilege on the owner,
	// with group grants expanded to their full membership
	SubjectsWith(s Session, owner Owner, p Privilege) (map[Member]struct{}, error)
}

// Namespace manages the stem tree, group lifecycle, and group attributes
type Namespace interface {
	// AddStem creates a child stem under parent
	AddStem(s Session, parent Stem, extension, displayName string) (Stem, error)

	// AddGroup creates a group directly inside parent
	AddGroup(s Session, parent Stem, extension, displayName string) (Group, error)

	// DeleteStem removes an empty stem
	DeleteStem(s Session, st Stem) error

	// DeleteGroup removes the group, its memberships in both directions, its
	// composite, composites it factors, and grants it holds or carries
	DeleteGroup(s Session, g Group) error

	// SetAttribute writes an attribute field value on the group
	SetAttribute(s Session, g Group, field, value string) error

	// Attribute reads an attribute field value
	Attribute(s Session, g Group, field string) (string, error)

	// Groups lists groups directly inside the stem
	Groups(s Session, st Stem) (map[Group]struct{}, error)

	// Stems lists child stems directly inside the stem
	Stems(s Session, st Stem) (map[Stem]struct{}, error)

	// GroupExists tells if the group has been created and not deleted
	GroupExists(s Session, g Group) (bool, error)

	// StemExists tells if the stem has been created and not deleted
	StemExists(s Session, st Stem) (bool, error)
}
