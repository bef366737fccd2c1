// Package mgo persists membership edges and privilege grants in mongodb.
// Change streams make Watch work across processes, which the sqlite store can
// not offer. Composite and namespace facts change rarely and stay on whatever
// other store the deployment uses.
package mgo

import (
	"time"

	"github.com/globalsign/mgo"
	"github.com/go-logr/logr"
)

type collection struct {
	*mgo.Collection
	log          logr.Logger
	retryTimeout time.Duration
}

// newCollection wraps the mongo collection with quiet logging until an
// option says otherwise
func newCollection(coll *mgo.Collection) *collection {
	return &collection{
		Collection:   coll,
		log:          logr.Discard(),
		retryTimeout: 5 * time.Second,
	}
}

func (c *collection) copySession() *collection {
	db := c.Database
	return &collection{Collection: db.Session.Copy().DB(db.Name).C(c.Name)}
}

func (c *collection) closeSession() {
	c.Database.Session.Close()
}

type collectionOption func(*collection)

// WithLogger sets a logger for the persister
func WithLogger(log logr.Logger) collectionOption {
	return func(c *collection) {
		c.log = log
	}
}

// SetRetryTimeout controls how long to wait before reconnecting a broken
// change stream
func SetRetryTimeout(d time.Duration) collectionOption {
	return func(c *collection) {
		c.retryTimeout = d
	}
}

type changeStreamOperationType string

const (
	insert  changeStreamOperationType = "insert"
	delete  changeStreamOperationType = "delete"
	update  changeStreamOperationType = "update"
	replace changeStreamOperationType = "replace"
)
