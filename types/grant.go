package types

// Grant associates a privilege with a grantee on an owner. Grantees may be
// subjects or groups; a privilege granted to a group is held by every
// immediate or effective member of it. Grants are parallel to memberships:
// both are consulted by the privilege resolver, neither derives the other.
type Grant struct {
	Owner     Owner
	Grantee   Member
	Privilege Privilege
}
