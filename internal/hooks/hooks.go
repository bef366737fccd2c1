// Package hooks dispatches lifecycle callbacks around registry mutations.
// Pre hooks may veto the mutation by returning an error, post hooks run after
// the fact and their errors are only logged.
package hooks

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/types"
)

// hookKey addresses the hooks of one kind and point
type hookKey struct {
	kind  types.HookKind
	point types.HookPoint
}

// Registry holds registered hooks and fires them in registration order
type Registry struct {
	log logr.Logger

	mu    sync.RWMutex
	hooks map[hookKey][]types.Hook
}

// New creates an empty hook registry
func New(log logr.Logger) *Registry {
	return &Registry{
		log:   log,
		hooks: make(map[hookKey][]types.Hook),
	}
}

// Register adds a hook for the kind and point
func (r *Registry) Register(kind types.HookKind, point types.HookPoint, h types.Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := hookKey{kind: kind, point: point}
	r.hooks[k] = append(r.hooks[k], h)
}

// Pre fires the pre hooks for the event. The first hook error vetoes the
// mutation and is returned wrapped in ErrVetoed.
func (r *Registry) Pre(sess types.Session, point types.HookPoint, ev types.HookEvent) error {
	r.mu.RLock()
	registered := r.hooks[hookKey{kind: ev.Kind, point: point}]
	r.mu.RUnlock()

	for _, h := range registered {
		if e := h(sess, ev); e != nil {
			return fmt.Errorf("%w: %w", types.ErrVetoed, e)
		}
	}
	return nil
}

// Post fires the post hooks for the event. The mutation already happened, so
// hook errors cannot abort it and are only logged.
func (r *Registry) Post(sess types.Session, point types.HookPoint, ev types.HookEvent) {
	r.mu.RLock()
	registered := r.hooks[hookKey{kind: ev.Kind, point: point}]
	r.mu.RUnlock()

	for _, h := range registered {
		if e := h(sess, ev); e != nil {
			r.log.Error(e, "post hook failed", "kind", ev.Kind, "point", point)
		}
	}
}
