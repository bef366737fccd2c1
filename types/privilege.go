package types

import "strings"

// Privilege is an access or naming right grantable on an owner.
// Privileges are powers of two to achieve efficient set operations, like
// union, intersection, complement. A Privilege value is also a union of
// privileges.
type Privilege uint32

// access privileges apply to groups, naming privileges to stems
const (
	Admin Privilege = 1 << iota
	Update
	Read
	View
	Optin
	Optout
	StemAdmin
	Create

	NoPrivilege       Privilege = 0
	AccessPrivileges            = Admin | Update | Read | View | Optin | Optout
	NamingPrivileges            = StemAdmin | Create
)

var privilegeNames = map[Privilege]string{
	Admin:     "admin",
	Update:    "update",
	Read:      "read",
	View:      "view",
	Optin:     "optin",
	Optout:    "optout",
	StemAdmin: "stem",
	Create:    "create",
}

// ParsePrivilege parses a serialized union of privileges
func ParsePrivilege(s string) (Privilege, error) {
	var p Privilege
	for _, name := range strings.Split(s, "|") {
		found := false
		for priv, n := range privilegeNames {
			if n == name {
				p |= priv
				found = true
				break
			}
		}
		if !found {
			return 0, ErrUnknownPrivilege
		}
	}
	return p, nil
}

// IsIn tells if all privileges in p are members of q: p is subset of q
func (p Privilege) IsIn(q Privilege) bool {
	return p|q == q
}

// Includes tells if all privileges in q are members of p: p is superset of q
func (p Privilege) Includes(q Privilege) bool {
	return q.IsIn(p)
}

// Difference returns the privileges belonging to p but not q: complement of q in p
func (p Privilege) Difference(q Privilege) Privilege {
	return p &^ q
}

// Split a union of privileges to a slice of single privileges
func (p Privilege) Split() []Privilege {
	out := make([]Privilege, 0)
	op := Privilege(1)
	for op <= p {
		if op&p > 0 {
			out = append(out, op)
		}
		op <<= 1
	}
	return out
}

func (p Privilege) String() string {
	ps := p.Split()
	ns := make([]string, 0, len(ps))
	for _, single := range ps {
		n, ok := privilegeNames[single]
		if !ok {
			n = "unknown"
		}
		ns = append(ns, n)
	}
	return strings.Join(ns, "|")
}
