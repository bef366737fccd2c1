package privilege

import (
	"sync"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/types"
)

// CachedResolver memoizes privilege decisions and exposes the invalidation
// hooks the registry drives after every mutation.
type CachedResolver interface {
	Resolver

	// InvalidateOwner drops every cached decision about the owner
	InvalidateOwner(o types.Owner)

	// InvalidateMember drops every cached decision about the member
	InvalidateMember(m types.Member)

	// InvalidateAll drops the whole cache
	InvalidateAll()
}

var _ CachedResolver = (*cachedResolver)(nil)

// cacheKey addresses one memoized decision. Owners and members are stored
// serialized so the key stays comparable.
type cacheKey struct {
	owner  string
	member string
}

type cachedResolver struct {
	inner Resolver
	log   logr.Logger

	mu       sync.RWMutex
	gen      uint64
	held     map[cacheKey]types.Privilege
	byOwner  map[string]map[cacheKey]struct{}
	byMember map[string]map[cacheKey]struct{}
}

// NewCached wraps the resolver with a memoizing cache. Entries live until a
// mutation invalidates them, there is no time based expiry.
func NewCached(inner Resolver, log logr.Logger) CachedResolver {
	return &cachedResolver{
		inner:    inner,
		log:      log,
		held:     make(map[cacheKey]types.Privilege),
		byOwner:  make(map[string]map[cacheKey]struct{}),
		byMember: make(map[string]map[cacheKey]struct{}),
	}
}

func (c *cachedResolver) Has(o types.Owner, m types.Member, p types.Privilege) (bool, error) {
	held, e := c.PrivilegesOf(o, m)
	if e != nil {
		return false, e
	}
	if held.Includes(p) {
		return true, nil
	}
	// the system subject holds everything without any grant
	return m == types.Member(types.SystemSubject), nil
}

func (c *cachedResolver) PrivilegesOf(o types.Owner, m types.Member) (types.Privilege, error) {
	k := cacheKey{owner: o.String(), member: m.String()}

	c.mu.RLock()
	held, ok := c.held[k]
	gen := c.gen
	c.mu.RUnlock()
	if ok {
		c.log.V(6).Info("privilege cache hit", "owner", o, "member", m)
		return held, nil
	}

	held, e := c.inner.PrivilegesOf(o, m)
	if e != nil {
		return 0, e
	}

	c.mu.Lock()
	// an invalidation between the miss and here may concern this very
	// decision, the next read recomputes it instead
	if c.gen == gen {
		c.held[k] = held
		if c.byOwner[k.owner] == nil {
			c.byOwner[k.owner] = make(map[cacheKey]struct{})
		}
		c.byOwner[k.owner][k] = struct{}{}
		if c.byMember[k.member] == nil {
			c.byMember[k.member] = make(map[cacheKey]struct{})
		}
		c.byMember[k.member][k] = struct{}{}
	}
	c.mu.Unlock()

	return held, nil
}

func (c *cachedResolver) SubjectsWith(o types.Owner, p types.Privilege) (map[types.Member]types.Privilege, error) {
	// reverse queries are rare, always answered fresh
	return c.inner.SubjectsWith(o, p)
}

func (c *cachedResolver) InvalidateOwner(o types.Owner) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	name := o.String()
	c.log.V(4).Info("invalidate privilege cache by owner", "owner", o, "entries", len(c.byOwner[name]))
	for k := range c.byOwner[name] {
		c.drop(k)
	}
}

func (c *cachedResolver) InvalidateMember(m types.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	name := m.String()
	c.log.V(4).Info("invalidate privilege cache by member", "member", m, "entries", len(c.byMember[name]))
	for k := range c.byMember[name] {
		c.drop(k)
	}

	// a group both receives grants and holds cached decisions as an owner
	if g, ok := m.(types.Group); ok {
		for k := range c.byOwner[g.String()] {
			c.drop(k)
		}
	}
}

func (c *cachedResolver) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.log.V(4).Info("invalidate whole privilege cache", "entries", len(c.held))
	c.held = make(map[cacheKey]types.Privilege)
	c.byOwner = make(map[string]map[cacheKey]struct{})
	c.byMember = make(map[string]map[cacheKey]struct{})
}

// drop removes one entry and its index rows, callers hold the write lock
func (c *cachedResolver) drop(k cacheKey) {
	delete(c.held, k)
	delete(c.byOwner[k.owner], k)
	if len(c.byOwner[k.owner]) == 0 {
		delete(c.byOwner, k.owner)
	}
	delete(c.byMember[k.member], k)
	if len(c.byMember[k.member]) == 0 {
		delete(c.byMember, k.member)
	}
}
