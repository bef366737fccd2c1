package types

import "errors"

// exported errors, mutation failures wrap one of these so callers can match
// with errors.Is instead of catching long chains of failure types
var (
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExists         = errors.New("already exists")
	ErrMemberAdd             = errors.New("member add refused")
	ErrMemberDelete          = errors.New("member delete refused")
	ErrCycleDetected         = errors.New("membership cycle detected")
	ErrCompositeConflict     = errors.New("composite conflict")
	ErrSchema                = errors.New("schema violation")
	ErrInsufficientPrivilege = errors.New("insufficient privilege")
	ErrVetoed                = errors.New("vetoed by hook")
	ErrInvalidName           = errors.New("invalid name")
	ErrInvalidSubject        = errors.New("invalid subject")
	ErrUnknownPrivilege      = errors.New("unknown privilege")
	ErrUnsupportedChange     = errors.New("persister changed in an unsupported way")
)
