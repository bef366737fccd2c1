package types

import "context"

// PersistMethod defines what happened about a persisted policy
type PersistMethod string

// possible changes could happen about policies
const (
	PersistInsert PersistMethod = "insert"
	PersistDelete PersistMethod = "delete"
	PersistUpdate PersistMethod = "update"
)

// MembershipPolicy is one persisted immediate membership edge. Derived rows
// are never persisted: the closure engine rebuilds them on load.
type MembershipPolicy struct {
	Owner  Group
	Field  string
	Member Member
}

// MembershipPolicyChange denotes a changing event about a MembershipPolicy
type MembershipPolicyChange struct {
	MembershipPolicy
	Method PersistMethod
}

// MembershipPersister persists immediate membership edges to an external storage
type MembershipPersister interface {
	// Insert inserts an immediate edge to the persister
	Insert(g Group, field string, m Member) error

	// Remove an immediate edge from the persister
	Remove(g Group, field string, m Member) error

	// RemoveByOwner removes all edges owned by the group
	RemoveByOwner(g Group) error

	// RemoveByMember removes all edges listing the member
	RemoveByMember(m Member) error

	// List all edges from the persister
	List() ([]MembershipPolicy, error)

	// Watch any changes occurred about the edges in the persister
	Watch(context.Context) (<-chan MembershipPolicyChange, error)
}

// CompositeChange denotes a changing event about a Composite definition
type CompositeChange struct {
	Composite
	Method PersistMethod
}

// CompositePersister persists composite definitions to an external storage
type CompositePersister interface {
	// Insert inserts a composite definition to the persister
	Insert(Composite) error

	// Remove the definition owned by the group from the persister
	Remove(owner Group) error

	// List all definitions from the persister
	List() ([]Composite, error)

	// Watch any changes occurred about the definitions in the persister
	Watch(context.Context) (<-chan CompositeChange, error)
}

// GrantPolicy is one persisted privilege grant
type GrantPolicy struct {
	Owner     Owner
	Grantee   Member
	Privilege Privilege
}

// GrantPolicyChange denotes a changing event about a GrantPolicy
type GrantPolicyChange struct {
	GrantPolicy
	Method PersistMethod
}

// GrantPersister persists privilege grants to an external storage
type GrantPersister interface {
	// Upsert inserts or updates the grantee's privilege set on the owner
	Upsert(o Owner, g Member, p Privilege) error

	// Remove the grantee's privilege set on the owner
	Remove(o Owner, g Member) error

	// RemoveByOwner removes all grants on the owner
	RemoveByOwner(o Owner) error

	// List all grants from the persister
	List() ([]GrantPolicy, error)

	// Watch any changes occurred about the grants in the persister
	Watch(context.Context) (<-chan GrantPolicyChange, error)
}

// NamespaceKind tells which namespace fact a record or change is about
type NamespaceKind string

// possible namespace fact kinds
const (
	NamespaceStem      NamespaceKind = "stem"
	NamespaceGroup     NamespaceKind = "group"
	NamespaceAttribute NamespaceKind = "attribute"
)

// NamespacePolicy is one persisted namespace fact: a stem, a group, or a
// group attribute value. Exactly the fields for its kind are set.
type NamespacePolicy struct {
	Kind  NamespaceKind
	Stem  Stem
	Group Group
	Field string
	Value string
}

// NamespacePolicyChange denotes a changing event about a NamespacePolicy
type NamespacePolicyChange struct {
	NamespacePolicy
	Method PersistMethod
}

// NamespacePersister persists the stem tree, groups, and attributes to an
// external storage
type NamespacePersister interface {
	// InsertStem inserts a stem to the persister
	InsertStem(Stem) error

	// RemoveStem removes a stem from the persister
	RemoveStem(Stem) error

	// InsertGroup inserts a group to the persister
	InsertGroup(Group) error

	// RemoveGroup removes a group and its attributes from the persister
	RemoveGroup(Group) error

	// UpsertAttribute writes a group attribute value
	UpsertAttribute(g Group, field, value string) error

	// UpsertStemAttribute writes a stem attribute value
	UpsertStemAttribute(st Stem, field, value string) error

	// List all namespace facts from the persister
	List() ([]NamespacePolicy, error)

	// Watch any changes occurred about the facts in the persister
	Watch(context.Context) (<-chan NamespacePolicyChange, error)
}
