package types

// Session is the acting-subject context every registry call carries.
// It is always passed explicitly, never kept as ambient global state.
type Session struct {
	Subject Subject
}

// NewSession starts a session acting as the given subject
func NewSession(sub Subject) Session {
	return Session{Subject: sub}
}

// RootSession starts a session acting as the internal system subject,
// which passes every privilege check.
func RootSession() Session {
	return Session{Subject: SystemSubject}
}

// IsRoot tells if the session acts as the system subject
func (s Session) IsRoot() bool {
	return s.Subject == SystemSubject
}
