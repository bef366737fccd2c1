package filter

import (
	"context"

	"github.com/saltybeagle/grouper/types"
)

var _ types.MembershipPersister = (*membershipPersisterFilter)(nil)

type membershipPersisterFilter struct {
	types.MembershipPersister
	marks *marks[types.MembershipPolicyChange]
}

// NewMembershipPersister checks if incoming changes were made by this
// process, and does not report them again if true
func NewMembershipPersister(p types.MembershipPersister) types.MembershipPersister {
	return &membershipPersisterFilter{
		MembershipPersister: p,
		marks:               newMarks[types.MembershipPolicyChange](),
	}
}

func (f *membershipPersisterFilter) Insert(g types.Group, field string, m types.Member) error {
	change := types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{Owner: g, Field: field, Member: m},
		Method:           types.PersistInsert,
	}
	f.marks.mark(change)
	if e := f.MembershipPersister.Insert(g, field, m); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *membershipPersisterFilter) Remove(g types.Group, field string, m types.Member) error {
	change := types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{Owner: g, Field: field, Member: m},
		Method:           types.PersistDelete,
	}
	f.marks.mark(change)
	if e := f.MembershipPersister.Remove(g, field, m); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *membershipPersisterFilter) Watch(ctx context.Context) (<-chan types.MembershipPolicyChange, error) {
	in, e := f.MembershipPersister.Watch(ctx)
	if e != nil {
		return nil, e
	}
	out := make(chan types.MembershipPolicyChange)
	go func() {
		defer close(out)
		for change := range in {
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
