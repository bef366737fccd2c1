package filter

import (
	"context"

	"github.com/saltybeagle/grouper/types"
)

var _ types.NamespacePersister = (*namespacePersisterFilter)(nil)

type namespacePersisterFilter struct {
	types.NamespacePersister
	marks *marks[types.NamespacePolicyChange]
}

// NewNamespacePersister checks if incoming changes were made by this
// process, and does not report them again if true
func NewNamespacePersister(p types.NamespacePersister) types.NamespacePersister {
	return &namespacePersisterFilter{
		NamespacePersister: p,
		marks:              newMarks[types.NamespacePolicyChange](),
	}
}

func (f *namespacePersisterFilter) InsertStem(st types.Stem) error {
	change := types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceStem, Stem: st},
		Method:          types.PersistInsert,
	}
	f.marks.mark(change)
	if e := f.NamespacePersister.InsertStem(st); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *namespacePersisterFilter) RemoveStem(st types.Stem) error {
	change := types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceStem, Stem: st},
		Method:          types.PersistDelete,
	}
	f.marks.mark(change)
	if e := f.NamespacePersister.RemoveStem(st); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *namespacePersisterFilter) InsertGroup(g types.Group) error {
	change := types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceGroup, Group: g},
		Method:          types.PersistInsert,
	}
	f.marks.mark(change)
	if e := f.NamespacePersister.InsertGroup(g); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *namespacePersisterFilter) RemoveGroup(g types.Group) error {
	change := types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceGroup, Group: g},
		Method:          types.PersistDelete,
	}
	f.marks.mark(change)
	if e := f.NamespacePersister.RemoveGroup(g); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *namespacePersisterFilter) UpsertAttribute(g types.Group, field, value string) error {
	change := types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceAttribute, Group: g, Field: field, Value: value},
		Method:          types.PersistUpdate,
	}
	f.marks.mark(change)
	if e := f.NamespacePersister.UpsertAttribute(g, field, value); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *namespacePersisterFilter) UpsertStemAttribute(st types.Stem, field, value string) error {
	change := types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceAttribute, Stem: st, Field: field, Value: value},
		Method:          types.PersistUpdate,
	}
	f.marks.mark(change)
	if e := f.NamespacePersister.UpsertStemAttribute(st, field, value); e != nil {
		f.marks.unmark(change)
		return e
	}
	return nil
}

func (f *namespacePersisterFilter) Watch(ctx context.Context) (<-chan types.NamespacePolicyChange, error) {
	in, e := f.NamespacePersister.Watch(ctx)
	if e != nil {
		return nil, e
	}
	out := make(chan types.NamespacePolicyChange)
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
