package types

// HookKind is the entity kind a lifecycle hook listens on
type HookKind string

// entity kinds raising lifecycle events
const (
	HookMembership HookKind = "membership"
	HookComposite  HookKind = "composite"
	HookGrant      HookKind = "grant"
	HookGroup      HookKind = "group"
	HookStem       HookKind = "stem"
	HookAttribute  HookKind = "attribute"
)

// HookPoint is where in a mutation's lifecycle a hook runs. Pre points run
// before the mutation and may veto it; post points run after it and can not.
type HookPoint string

// possible lifecycle points
const (
	PreInsert  HookPoint = "pre-insert"
	PreUpdate  HookPoint = "pre-update"
	PreDelete  HookPoint = "pre-delete"
	PostInsert HookPoint = "post-insert"
	PostUpdate HookPoint = "post-update"
	PostDelete HookPoint = "post-delete"
)

// HookEvent describes the mutation a hook is being told about. The field
// matching the kind is set.
type HookEvent struct {
	Kind       HookKind
	Membership *MembershipPolicy
	Composite  *Composite
	Grant      *GrantPolicy
	Group      Group
	Stem       Stem
	Field      string
	Value      string
}

// Hook is an externally supplied lifecycle callback. A non-nil error from a
// pre-point hook vetoes the whole operation before any state changes.
type Hook func(Session, HookEvent) error
