package types

// FieldKind tells how a field holds data: a membership list or a scalar
// attribute value.
type FieldKind string

// possible field kinds
const (
	FieldList      FieldKind = "list"
	FieldAttribute FieldKind = "attribute"
)

// Field is a named slot on groups, either a membership list or an attribute,
// carrying the privileges required to read and write it.
type Field struct {
	Name   string
	Kind   FieldKind
	Read   Privilege
	Write  Privilege
	System bool
}

// DefaultList is the field every group holds its plain membership on, and the
// one composite owners refuse immediate members on.
const DefaultList = "members"

// built-in schema field names
const (
	FieldDisplayName = "displayName"
	FieldDescription = "description"
)

// BuiltinFields returns the system schema every registry starts with.
// System fields can not be redefined or removed.
func BuiltinFields() []Field {
	return []Field{
		{Name: DefaultList, Kind: FieldList, Read: Read, Write: Update, System: true},
		{Name: FieldDisplayName, Kind: FieldAttribute, Read: View, Write: Admin, System: true},
		{Name: FieldDescription, Kind: FieldAttribute, Read: View, Write: Admin, System: true},
	}
}
