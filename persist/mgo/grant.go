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

// GrantPersister is a GrantPersister backed by mongodb
type GrantPersister struct {
	*collection
}

var _ types.GrantPersister = (*GrantPersister)(nil)

// NewGrant uses the given mongodb collection as backend to persist privilege
// grants
func NewGrant(coll *mgo.Collection, opts ...collectionOption) (*GrantPersister, error) {
	c := &GrantPersister{newCollection(coll)}
	for _, opt := range opts {
		opt(c.collection)
	}

	ss := c.copySession()
	defer ss.closeSession()

	if e := ss.EnsureIndex(mgo.Index{Key: []string{"owner", "grantee"}, Unique: true}); e != nil {
		return nil, e
	}

	return c, nil
}

type grantDO struct {
	ID        string `bson:"_id"`
	Owner     string `bson:"owner"`
	Grantee   string `bson:"grantee"`
	Privilege uint32 `bson:"privilege"`
}

func newGrantDO(o types.Owner, g types.Member, p types.Privilege) *grantDO {
	do := &grantDO{
		Owner:     o.String(),
		Grantee:   g.String(),
		Privilege: uint32(p),
	}
	do.ID = do.Owner + "#" + do.Grantee
	return do
}

func grantFromID(id string) (*grantDO, error) {
	parts := strings.SplitN(id, "#", 2)
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid grant policy id: %s", id)
	}
	return &grantDO{ID: id, Owner: parts[0], Grantee: parts[1]}, nil
}

func (do *grantDO) asPolicy() (types.GrantPolicy, error) {
	o, e := types.ParseOwner(do.Owner)
	if e != nil {
		return types.GrantPolicy{}, e
	}
	g, e := types.ParseMember(do.Grantee)
	if e != nil {
		return types.GrantPolicy{}, e
	}
	return types.GrantPolicy{Owner: o, Grantee: g, Privilege: types.Privilege(do.Privilege)}, nil
}

// Upsert inserts or updates the grantee's privilege set on the owner
func (p *GrantPersister) Upsert(o types.Owner, g types.Member, priv types.Privilege) error {
	ss := p.copySession()
	defer ss.closeSession()

	do := newGrantDO(o, g, priv)
	p.log.V(4).Info("upsert grant policy", "policy", do)

	_, e := ss.UpsertId(do.ID, bson.M{"$set": bson.M{
		"owner":     do.Owner,
		"grantee":   do.Grantee,
		"privilege": do.Privilege,
	}})
	return parseMgoError(e)
}

// Remove the grantee's privilege set on the owner
func (p *GrantPersister) Remove(o types.Owner, g types.Member) error {
	ss := p.copySession()
	defer ss.closeSession()

	do := newGrantDO(o, g, 0)
	p.log.V(4).Info("remove grant policy", "policy", do)

	return parseMgoError(ss.RemoveId(do.ID))
}

// RemoveByOwner removes all grants on the owner
func (p *GrantPersister) RemoveByOwner(o types.Owner) error {
	ss := p.copySession()
	defer ss.closeSession()

	p.log.V(4).Info("remove grant policies by owner", "owner", o)

	_, e := ss.RemoveAll(bson.M{"owner": o.String()})
	return parseMgoError(e)
}

// List all grants from the persister
func (p *GrantPersister) List() ([]types.GrantPolicy, error) {
	ss := p.copySession()
	defer ss.closeSession()

	iter := ss.Find(nil).Iter()
	defer iter.Close()

	policies := make([]types.GrantPolicy, 0)
	var do grantDO
	for iter.Next(&do) {
		policy, e := do.asPolicy()
		if e != nil {
			return nil, e
		}
		policies = append(policies, policy)
		do = grantDO{}
	}
	if e := iter.Err(); e != nil {
		return nil, e
	}

	p.log.V(4).Info("list grant policies", "policies", policies)

	return policies, nil
}

type grantChangeEvent struct {
	OperationType changeStreamOperationType `bson:"operationType,omitempty"`
	FullDocument  grantDO                   `bson:"fullDocument,omitempty"`
	DocumentKey   struct {
		ID string `bson:"_id,omitempty"`
	} `bson:"documentKey,omitempty"`
	UpdateDescription struct {
		UpdatedFields bson.M `bson:"updatedFields,omitempty"`
	} `bson:"updateDescription,omitempty"`
}

// Watch any changes occurred about the grants in the persister
func (p *GrantPersister) Watch(ctx context.Context) (<-chan types.GrantPolicyChange, error) {
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

	fetch := func(cs *mgo.ChangeStream, changes chan<- types.GrantPolicyChange) error {
		for {
			var event grantChangeEvent
			if cs.Next(&event) {
				var method types.PersistMethod
				do := event.FullDocument

				switch event.OperationType {
				case insert, update, replace:
					method = types.PersistUpdate
					if do.ID == "" {
						// the looked up document may be gone already, fall
						// back to the key and the updated fields
						parsed, e := grantFromID(event.DocumentKey.ID)
						if e != nil {
							p.log.Error(e, "parse grant policy id", "id", event.DocumentKey.ID)
							continue
						}
						if v, ok := event.UpdateDescription.UpdatedFields["privilege"].(int); ok {
							parsed.Privilege = uint32(v)
						}
						do = *parsed
					}

				case delete:
					method = types.PersistDelete
					parsed, e := grantFromID(event.DocumentKey.ID)
					if e != nil {
						p.log.Error(e, "parse grant policy id", "id", event.DocumentKey.ID)
						continue
					}
					do = *parsed

				default:
					p.log.Info("unknown operation type", "operation type", event.OperationType)
					continue
				}

				policy, e := do.asPolicy()
				if e != nil {
					p.log.Error(e, "parse grant change document", "id", event.DocumentKey.ID)
					continue
				}
				change := types.GrantPolicyChange{GrantPolicy: policy, Method: method}
				p.log.V(4).Info("got grant change event", "change", change)

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

	changes := make(chan types.GrantPolicyChange)
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
