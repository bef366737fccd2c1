package mgo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/globalsign/mgo"
	"github.com/globalsign/mgo/bson"

	"github.com/saltybeagle/grouper/types"
)

// MembershipPersister is a MembershipPersister backed by mongodb
type MembershipPersister struct {
	*collection
}

var _ types.MembershipPersister = (*MembershipPersister)(nil)

// NewMembership uses the given mongodb collection as backend to persist
// immediate membership edges
func NewMembership(coll *mgo.Collection, opts ...collectionOption) (*MembershipPersister, error) {
	c := &MembershipPersister{newCollection(coll)}
	for _, opt := range opts {
		opt(c.collection)
	}

	ss := c.copySession()
	defer ss.closeSession()

	if e := ss.EnsureIndex(mgo.Index{Key: []string{"owner", "field", "member"}, Unique: true}); e != nil {
		return nil, e
	}

	return c, nil
}

type membershipDO struct {
	ID     string `bson:"_id"`
	Owner  string `bson:"owner"`
	Field  string `bson:"field"`
	Member string `bson:"member"`
}

func newMembershipDO(g types.Group, field string, m types.Member) *membershipDO {
	do := &membershipDO{
		Owner:  g.String(),
		Field:  field,
		Member: m.String(),
	}
	do.ID = do.Owner + "#" + do.Field + "#" + do.Member
	return do
}

func membershipFromID(id string) (*membershipDO, error) {
	parts := strings.SplitN(id, "#", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid membership policy id: %s", id)
	}
	return &membershipDO{ID: id, Owner: parts[0], Field: parts[1], Member: parts[2]}, nil
}

func (do *membershipDO) asPolicy() (types.MembershipPolicy, error) {
	o, e := types.ParseOwner(do.Owner)
	if e != nil {
		return types.MembershipPolicy{}, e
	}
	g, ok := o.(types.Group)
	if !ok {
		return types.MembershipPolicy{}, fmt.Errorf("%w: membership owner %s is not a group", types.ErrSchema, do.Owner)
	}
	m, e := types.ParseMember(do.Member)
	if e != nil {
		return types.MembershipPolicy{}, e
	}
	return types.MembershipPolicy{Owner: g, Field: do.Field, Member: m}, nil
}

// Insert inserts an immediate edge to the persister
func (p *MembershipPersister) Insert(g types.Group, field string, m types.Member) error {
	ss := p.copySession()
	defer ss.closeSession()

	do := newMembershipDO(g, field, m)
	p.log.V(4).Info("insert membership policy", "policy", do)

	return parseMgoError(ss.Insert(do))
}

// Remove an immediate edge from the persister
func (p *MembershipPersister) Remove(g types.Group, field string, m types.Member) error {
	ss := p.copySession()
	defer ss.closeSession()

	do := newMembershipDO(g, field, m)
	p.log.V(4).Info("remove membership policy", "policy", do)

	return parseMgoError(ss.RemoveId(do.ID))
}

// RemoveByOwner removes all edges owned by the group
func (p *MembershipPersister) RemoveByOwner(g types.Group) error {
	ss := p.copySession()
	defer ss.closeSession()

	p.log.V(4).Info("remove membership policies by owner", "owner", g)

	_, e := ss.RemoveAll(bson.M{"owner": g.String()})
	return parseMgoError(e)
}

// RemoveByMember removes all edges listing the member
func (p *MembershipPersister) RemoveByMember(m types.Member) error {
	ss := p.copySession()
	defer ss.closeSession()

	p.log.V(4).Info("remove membership policies by member", "member", m)

	_, e := ss.RemoveAll(bson.M{"member": m.String()})
	return parseMgoError(e)
}

// List all edges from the persister
func (p *MembershipPersister) List() ([]types.MembershipPolicy, error) {
	ss := p.copySession()
	defer ss.closeSession()

	iter := ss.Find(nil).Iter()
	defer iter.Close()

	policies := make([]types.MembershipPolicy, 0)
	var do membershipDO
	for iter.Next(&do) {
		policy, e := do.asPolicy()
		if e != nil {
			return nil, e
		}
		policies = append(policies, policy)
		do = membershipDO{}
	}
	if e := iter.Err(); e != nil {
		return nil, e
	}

	p.log.V(4).Info("list membership policies", "policies", policies)

	return policies, nil
}

type membershipChangeEvent struct {
	OperationType changeStreamOperationType `bson:"operationType,omitempty"`
	FullDocument  membershipDO              `bson:"fullDocument,omitempty"`
	DocumentKey   struct {
		ID string `bson:"_id,omitempty"`
	} `bson:"documentKey,omitempty"`
}

// Watch any changes occurred about the edges in the persister
func (p *MembershipPersister) Watch(ctx context.Context) (<-chan types.MembershipPolicyChange, error) {
	connect := func() (*mgo.ChangeStream, func(), error) {
		ss := p.copySession()
		cs, e := ss.Watch(nil, mgo.ChangeStreamOptions{FullDocument: mgo.UpdateLookup})
		if e != nil {
			ss.closeSession()
			return nil, nil, e
		}

		p.log.Info("watch mongo change stream")

		return cs, func() {
			cs.Close()
			ss.closeSession()
		}, nil
	}

	fetch := func(cs *mgo.ChangeStream, changes chan<- types.MembershipPolicyChange) error {
		for {
			var event membershipChangeEvent
			if cs.Next(&event) {
				var method types.PersistMethod
				do := event.FullDocument

				switch event.OperationType {
				case insert:
					method = types.PersistInsert

				case delete:
					method = types.PersistDelete
					// deletes carry no full document, the id tells everything
					parsed, e := membershipFromID(event.DocumentKey.ID)
					if e != nil {
						p.log.Error(e, "parse membership policy id", "id", event.DocumentKey.ID)
						continue
					}
					do = *parsed

				default:
					p.log.Info("unknown operation type", "operation type", event.OperationType)
					continue
				}

				policy, e := do.asPolicy()
				if e != nil {
					p.log.Error(e, "parse membership change document", "id", event.DocumentKey.ID)
					continue
				}
				change := types.MembershipPolicyChange{MembershipPolicy: policy, Method: method}
				p.log.V(4).Info("got membership change event", "change", change)

				select {
				case <-ctx.Done():
					return ctx.Err()
				case changes <- change:
				}
			}

			if e := cs.Err(); e != nil {
				if errors.Is(e, mgo.ErrNotFound) {
					p.log.V(2).Info("watch found nothing, retry later")
					time.Sleep(p.retryTimeout)
					continue
				}

				return e
			}
		}
	}

	cs, closer, e := connect()
	if e != nil {
		return nil, e
	}
	firstConnect := true

	changes := make(chan types.MembershipPolicyChange)
	go func() {
		defer close(changes)

		for {
			select {
			case <-ctx.Done():
				closer()
				return

			default:
				if !firstConnect {
					cs, closer, e = connect()
					if e != nil {
						p.log.Error(e, "connect to watch failed, reconnect later")
						time.Sleep(p.retryTimeout)
						continue
					}
				}

				firstConnect = false
				e := fetch(cs, changes)
				closer()
				if e != nil && !errors.Is(e, context.Canceled) {
					p.log.Error(e, "fetch change event failed, reconnect later")
				}
				time.Sleep(p.retryTimeout)
			}
		}
	}()

	return changes, nil
}
