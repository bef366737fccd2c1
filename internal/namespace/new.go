package namespace

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/types"
)

// New creates a concurrent safe, persisted namespace
func New(ctx context.Context, np types.NamespacePersister, log logr.Logger) (Namespace, error) {
	return newPersisted(ctx, newSynced(newTree()), np, log)
}

// NewVolatile creates a concurrent safe namespace without persistence,
// everything is lost on restart
func NewVolatile() Namespace {
	return newSynced(newTree())
}
