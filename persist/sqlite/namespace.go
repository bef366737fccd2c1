package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saltybeagle/grouper/types"
)

var _ types.NamespacePersister = (*namespacePersister)(nil)

// namespace rows share one table: stems and groups use their kind and name,
// attribute rows additionally carry field and value
type namespacePersister struct {
	db      *sql.DB
	changes chan types.NamespacePolicyChange
}

func newNamespacePersister(ctx context.Context, db *sql.DB) *namespacePersister {
	p := &namespacePersister{
		db:      db,
		changes: make(chan types.NamespacePolicyChange),
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *namespacePersister) InsertStem(st types.Stem) error {
	if e := p.insert(string(types.NamespaceStem), st.Name()); e != nil {
		return fmt.Errorf("%w: %s", e, st)
	}
	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceStem, Stem: st},
		Method:          types.PersistInsert,
	}
	return nil
}

func (p *namespacePersister) RemoveStem(st types.Stem) error {
	if e := p.remove(string(types.NamespaceStem), st.Name()); e != nil {
		return fmt.Errorf("%w: %s", e, st)
	}
	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceStem, Stem: st},
		Method:          types.PersistDelete,
	}
	return nil
}

func (p *namespacePersister) InsertGroup(g types.Group) error {
	if e := p.insert(string(types.NamespaceGroup), g.Name()); e != nil {
		return fmt.Errorf("%w: %s", e, g)
	}
	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceGroup, Group: g},
		Method:          types.PersistInsert,
	}
	return nil
}

func (p *namespacePersister) RemoveGroup(g types.Group) error {
	if e := p.remove(string(types.NamespaceGroup), g.Name()); e != nil {
		return fmt.Errorf("%w: %s", e, g)
	}
	// attribute rows go away with the group
	if _, e := p.db.Exec(
		`DELETE FROM namespace WHERE kind = ? AND name = ?`,
		string(types.NamespaceAttribute), "group:"+g.Name(),
	); e != nil {
		return e
	}
	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceGroup, Group: g},
		Method:          types.PersistDelete,
	}
	return nil
}

func (p *namespacePersister) insert(kind, name string) error {
	res, e := p.db.Exec(
		`INSERT OR IGNORE INTO namespace (kind, name) VALUES (?, ?)`, kind, name,
	)
	if e != nil {
		return e
	}
	if n, e := res.RowsAffected(); e != nil {
		return e
	} else if n == 0 {
		return types.ErrAlreadyExists
	}
	return nil
}

func (p *namespacePersister) remove(kind, name string) error {
	res, e := p.db.Exec(
		`DELETE FROM namespace WHERE kind = ? AND name = ? AND field = ''`, kind, name,
	)
	if e != nil {
		return e
	}
	if n, e := res.RowsAffected(); e != nil {
		return e
	} else if n == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (p *namespacePersister) UpsertAttribute(g types.Group, field, value string) error {
	if e := p.upsertAttr("group:"+g.Name(), field, value); e != nil {
		return e
	}
	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceAttribute, Group: g, Field: field, Value: value},
		Method:          types.PersistUpdate,
	}
	return nil
}

func (p *namespacePersister) UpsertStemAttribute(st types.Stem, field, value string) error {
	if e := p.upsertAttr("stem:"+st.Name(), field, value); e != nil {
		return e
	}
	p.changes <- types.NamespacePolicyChange{
		NamespacePolicy: types.NamespacePolicy{Kind: types.NamespaceAttribute, Stem: st, Field: field, Value: value},
		Method:          types.PersistUpdate,
	}
	return nil
}

func (p *namespacePersister) upsertAttr(name, field, value string) error {
	_, e := p.db.Exec(
		`INSERT INTO namespace (kind, name, field, value) VALUES (?, ?, ?, ?)
		 ON CONFLICT (kind, name, field) DO UPDATE SET value = excluded.value`,
		string(types.NamespaceAttribute), name, field, value,
	)
	return e
}

func (p *namespacePersister) List() ([]types.NamespacePolicy, error) {
	rows, e := p.db.Query(`SELECT kind, name, field, value FROM namespace`)
	if e != nil {
		return nil, e
	}
	defer rows.Close()

	facts := make([]types.NamespacePolicy, 0)
	for rows.Next() {
		var kind, name, field, value string
		if e := rows.Scan(&kind, &name, &field, &value); e != nil {
			return nil, e
		}
		fact := types.NamespacePolicy{Kind: types.NamespaceKind(kind), Field: field, Value: value}
		switch fact.Kind {
		case types.NamespaceStem:
			fact.Stem = types.Stem(name)
		case types.NamespaceGroup:
			fact.Group = types.Group(name)
		case types.NamespaceAttribute:
			o, e := types.ParseOwner(name)
			if e != nil {
				return nil, e
			}
			switch owner := o.(type) {
			case types.Group:
				fact.Group = owner
			case types.Stem:
				fact.Stem = owner
			}
		default:
			return nil, fmt.Errorf("%w: namespace kind %q", types.ErrSchema, kind)
		}
		facts = append(facts, fact)
	}
	return facts, rows.Err()
}

func (p *namespacePersister) Watch(ctx context.Context) (<-chan types.NamespacePolicyChange, error) {
	return p.changes, nil
}
