// Package validate holds small composable validators for names, fields, and
// composite definitions. Each rule is pure and reports at most one error.
package validate

import (
	"fmt"
	"strings"

	"github.com/saltybeagle/grouper/types"
)

// Rule is one deferred check
type Rule func() error

// First runs the rules in order and returns the first failure
func First(rules ...Rule) error {
	for _, rule := range rules {
		if e := rule(); e != nil {
			return e
		}
	}
	return nil
}

// NotBlank rejects empty or whitespace only values
func NotBlank(what, value string) Rule {
	return func() error {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s is blank", types.ErrInvalidName, what)
		}
		return nil
	}
}

// NoSeparators rejects values containing the characters joining path
// segments and persister document ids
func NoSeparators(what, value string) Rule {
	return func() error {
		if strings.ContainsAny(value, ":#") {
			return fmt.Errorf("%w: %s %q contains a separator character", types.ErrInvalidName, what, value)
		}
		return nil
	}
}

// GoodExtension rejects extensions unfit for a path segment
func GoodExtension(ext string) Rule {
	return func() error {
		return First(
			NotBlank("extension", ext),
			NoSeparators("extension", ext),
		)
	}
}

// KnownField rejects field names absent from the schema
func KnownField(fields map[string]types.Field, name string) Rule {
	return func() error {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("%w: unknown field %q", types.ErrSchema, name)
		}
		return nil
	}
}

// NotSystemField rejects names already taken by a built in schema field
func NotSystemField(fields map[string]types.Field, name string) Rule {
	return func() error {
		if f, ok := fields[name]; ok && f.System {
			return fmt.Errorf("%w: field %q is built in", types.ErrSchema, name)
		}
		return nil
	}
}

// FieldIsList rejects attribute fields where a membership list is required
func FieldIsList(fields map[string]types.Field, name string) Rule {
	return func() error {
		f, ok := fields[name]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", types.ErrSchema, name)
		}
		if f.Kind != types.FieldList {
			return fmt.Errorf("%w: field %q is not a list", types.ErrSchema, name)
		}
		return nil
	}
}

// FieldIsAttribute rejects list fields where an attribute is required
func FieldIsAttribute(fields map[string]types.Field, name string) Rule {
	return func() error {
		f, ok := fields[name]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", types.ErrSchema, name)
		}
		if f.Kind != types.FieldAttribute {
			return fmt.Errorf("%w: field %q is not an attribute", types.ErrSchema, name)
		}
		return nil
	}
}

// GoodCompositeOp rejects unknown composite operators
func GoodCompositeOp(op types.CompositeOp) Rule {
	return func() error {
		if !op.Valid() {
			return fmt.Errorf("%w: unknown composite operator %q", types.ErrSchema, op)
		}
		return nil
	}
}

// DistinctFactors rejects a composite with one group on both sides
func DistinctFactors(left, right types.Group) Rule {
	return func() error {
		if left == right {
			return fmt.Errorf("%w: factors must differ, got %s twice", types.ErrSchema, left)
		}
		return nil
	}
}
