package privilege

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/saltybeagle/grouper/types"
)

// New creates a concurrent safe, persisted grant store
func New(ctx context.Context, gp types.GrantPersister, log logr.Logger) (Grants, error) {
	return newPersistedGrants(ctx, newSyncedGrants(newThinGrants()), gp, log)
}

// NewVolatile creates a concurrent safe grant store without persistence,
// everything is lost on restart
func NewVolatile() Grants {
	return newSyncedGrants(newThinGrants())
}
