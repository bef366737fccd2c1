package filter

import (
	"context"

	"github.com/saltybeagle/grouper/types"
)

var _ types.CompositePersister = (*compositePersisterFilter)(nil)

type compositePersisterFilter struct {
	types.CompositePersister
	marks *marks[types.CompositeChange]
}

// NewCompositePersister checks if incoming changes were made by this
// process, and does not report them again if true
func NewCompositePersister(p types.CompositePersister) types.CompositePersister {
	return &compositePersisterFilter{
		CompositePersister: p,
		marks:              newMarks[types.CompositeChange](),
	}
}

func (f *compositePersisterFilter) Insert(c types.Composite) error {
	change := types.CompositeChange{Composite: c, Method: types.PersistInsert}
	f.marks.mark(change)
	if e := f.CompositePersister.Insert(c); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *compositePersisterFilter) Remove(owner types.Group) error {
	// the echoed delete carries the full definition, match on owner alone
	c, e := f.findByOwner(owner)
	if e == nil {
		change := types.CompositeChange{Composite: c, Method: types.PersistDelete}
		f.marks.mark(change)
		if e := f.CompositePersister.Remove(owner); e != nil {
			f.marks.unmark(change)
			return e
		}
		return nil
	}
	return f.CompositePersister.Remove(owner)
}

func (f *compositePersisterFilter) findByOwner(owner types.Group) (types.Composite, error) {
	all, e := f.CompositePersister.List()
	if e != nil {
		return types.Composite{}, e
	}
	for _, c := range all {
		if c.Owner == owner {
			return c, nil
		}
	}
	return types.Composite{}, types.ErrNotFound
}

func (f *compositePersisterFilter) Watch(ctx context.Context) (<-chan types.CompositeChange, error) {
	in, e := f.CompositePersister.Watch(ctx)
	if e != nil {
		return nil, e
	}
	out := make(chan types.CompositeChange)
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
