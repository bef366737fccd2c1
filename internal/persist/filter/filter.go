// Package filter wraps persisters so that changes a process made itself are
// not applied twice: writes mark a pending change, and the watch stream drops
// the matching echo when the persister reports it back.
package filter

import "sync"

type marks[C comparable] struct {
	mu      sync.Mutex
	pending map[C]struct{}
}

func newMarks[C comparable]() *marks[C] {
	return &marks[C]{pending: make(map[C]struct{})}
}

func (m *marks[C]) mark(c C) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[c] = struct{}{}
}

func (m *marks[C]) unmark(c C) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, c)
}

// take reports whether the change was marked, consuming the mark
func (m *marks[C]) take(c C) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pending[c]; ok {
		delete(m.pending, c)
		return true
	}
	return false
}
