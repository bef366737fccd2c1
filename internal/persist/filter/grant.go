package filter

import (
	"context"

	"github.com/saltybeagle/grouper/types"
)

var _ types.GrantPersister = (*grantPersisterFilter)(nil)

type grantPersisterFilter struct {
	types.GrantPersister
	marks *marks[types.GrantPolicyChange]
}

// NewGrantPersister checks if incoming changes were made by this process,
// and does not report them again if true
func NewGrantPersister(p types.GrantPersister) types.GrantPersister {
	return &grantPersisterFilter{
		GrantPersister: p,
		marks:          newMarks[types.GrantPolicyChange](),
	}
}

func (f *grantPersisterFilter) Upsert(o types.Owner, g types.Member, p types.Privilege) error {
	change := types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Owner: o, Grantee: g, Privilege: p},
		Method:      types.PersistUpdate,
	}
	f.marks.mark(change)
	if e := f.GrantPersister.Upsert(o, g, p); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *grantPersisterFilter) Remove(o types.Owner, g types.Member) error {
	change := types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Owner: o, Grantee: g},
		Method:      types.PersistDelete,
	}
	f.marks.mark(change)
	if e := f.GrantPersister.Remove(o, g); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *grantPersisterFilter) Watch(ctx context.Context) (<-chan types.GrantPolicyChange, error) {
	in, e := f.GrantPersister.Watch(ctx)
	if e != nil {
		return nil, e
	}
	out := make(chan types.GrantPolicyChange)
	go func() {
		defer close(out)
		for change := range in {
			if change.Method == types.PersistDelete {
				// deletes are matched without the privilege set
				change.Privilege = 0
			}
			if f.marks.take(change) {
				continue
			}
			select {
			case out <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
