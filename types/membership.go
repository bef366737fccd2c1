package types

// MembershipKind tells how a membership row came to be.
type MembershipKind string

// possible membership kinds
const (
	// KindImmediate rows are directly assigned by callers
	KindImmediate MembershipKind = "immediate"
	// KindEffective rows are derived transitively through group-in-group edges
	KindEffective MembershipKind = "effective"
	// KindComposite rows are derived from a composite set operation
	KindComposite MembershipKind = "composite"
)

// Membership is one row of the membership fact table: member sits on the
// owner group's field list. Effective rows carry the group the derivation
// went through and the number of hops from the immediate edge.
type Membership struct {
	ID     string
	Owner  Group
	Field  string
	Member Member
	Kind   MembershipKind
	Via    Group
	Depth  int
}

// CompositeOp is a set operation over two factor groups.
type CompositeOp string

// possible composite operations
const (
	OpUnion        CompositeOp = "union"
	OpIntersection CompositeOp = "intersection"
	OpComplement   CompositeOp = "complement"
)

// Valid tells if the operation is a known one
func (op CompositeOp) Valid() bool {
	switch op {
	case OpUnion, OpIntersection, OpComplement:
		return true
	}
	return false
}

// Composite defines a group whose whole membership is derived algebraically
// from two factor groups. At most one composite may own a group.
type Composite struct {
	ID    string
	Owner Group
	Op    CompositeOp
	Left  Group
	Right Group
}
