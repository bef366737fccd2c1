package types

import (
	"fmt"
	"strings"
)

// Member is anything that may sit on a group's list field: a subject resolved
// from an external directory, or another group acting as a subject.
// Member is not expecting custom implementations.
type Member interface {
	// String method is used to be serialized when persisting
	String() string
	member() string
}

// Owner is a privilege target: a Group or a Stem.
// Owner is not expecting custom implementations.
type Owner interface {
	String() string
	owner() string
}

// Subject identifies a principal by (id, type, source), as resolved by the
// subject directory.
type Subject struct {
	ID     string
	Type   string
	Source string
}

// well known subject types and sources
const (
	TypePerson      = "person"
	TypeGroup       = "group"
	TypeApplication = "application"

	GroupSource    = "g:gsa"
	InternalSource = "g:isa"
)

// SystemSubject is the all-powerful internal subject, it passes every
// privilege check.
var SystemSubject = Subject{ID: "GrouperSystem", Type: TypeApplication, Source: InternalSource}

// EverySubject is the wildcard subject, privileges granted to it are held by
// every subject.
var EverySubject = Subject{ID: "GrouperAll", Type: TypeApplication, Source: InternalSource}

func (s Subject) String() string {
	return "subject:" + s.Source + ":" + s.Type + ":" + s.ID
}

func (s Subject) member() string {
	return s.String()
}

// IsGroup tells if the subject is a group acting as a subject
func (s Subject) IsGroup() bool {
	return s.Source == GroupSource
}

// AsGroup converts a group-sourced subject back to the Group it stands for
func (s Subject) AsGroup() (Group, error) {
	if !s.IsGroup() {
		return "", fmt.Errorf("%w: %s is not group sourced", ErrInvalidSubject, s)
	}
	return Group(s.ID), nil
}

// NewPerson is a convenience constructor for person subjects from the default
// directory source.
func NewPerson(id string) Subject {
	return Subject{ID: id, Type: TypePerson, Source: "ldap"}
}

// ParseMember parses a serialized Member
func ParseMember(s string) (Member, error) {
	switch {
	case strings.HasPrefix(s, "group:"):
		return Group(strings.TrimPrefix(s, "group:")), nil
	case strings.HasPrefix(s, "subject:"):
		parts := strings.SplitN(strings.TrimPrefix(s, "subject:"), ":", 3)
		if len(parts) < 3 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSubject, s)
		}
		return Subject{Source: parts[0], Type: parts[1], ID: parts[2]}, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidSubject, s)
}

// ParseOwner parses a serialized Owner
func ParseOwner(s string) (Owner, error) {
	switch {
	case strings.HasPrefix(s, "group:"):
		return Group(strings.TrimPrefix(s, "group:")), nil
	case strings.HasPrefix(s, "stem:"):
		return Stem(strings.TrimPrefix(s, "stem:")), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidName, s)
}
