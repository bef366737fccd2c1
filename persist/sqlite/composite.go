package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/saltybeagle/grouper/types"
)

var _ types.CompositePersister = (*compositePersister)(nil)

type compositePersister struct {
	db      *sql.DB
	changes chan types.CompositeChange
}

func newCompositePersister(ctx context.Context, db *sql.DB) *compositePersister {
	p := &compositePersister{
		db:      db,
		changes: make(chan types.CompositeChange),
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *compositePersister) Insert(def types.Composite) error {
	res, e := p.db.Exec(
		`INSERT OR IGNORE INTO composites (owner, op, left_factor, right_factor) VALUES (?, ?, ?, ?)`,
		def.Owner.String(), string(def.Op), def.Left.String(), def.Right.String(),
	)
	if e != nil {
		return e
	}
	if n, e := res.RowsAffected(); e != nil {
		return e
	} else if n == 0 {
		return fmt.Errorf("%w: composite on %s", types.ErrAlreadyExists, def.Owner)
	}

	p.changes <- types.CompositeChange{Composite: def, Method: types.PersistInsert}
	return nil
}

func (p *compositePersister) Remove(owner types.Group) error {
	def, e := p.get(owner)
	if e != nil {
		return e
	}
	if _, e := p.db.Exec(`DELETE FROM composites WHERE owner = ?`, owner.String()); e != nil {
		return e
	}

	p.changes <- types.CompositeChange{Composite: def, Method: types.PersistDelete}
	return nil
}

func (p *compositePersister) get(owner types.Group) (types.Composite, error) {
	row := p.db.QueryRow(
		`SELECT op, left_factor, right_factor FROM composites WHERE owner = ?`, owner.String(),
	)
	var op, left, right string
	if e := row.Scan(&op, &left, &right); e != nil {
		if errors.Is(e, sql.ErrNoRows) {
			return types.Composite{}, fmt.Errorf("%w: composite on %s", types.ErrNotFound, owner)
		}
		return types.Composite{}, e
	}
	return parseComposite(owner.String(), op, left, right)
}

func (p *compositePersister) List() ([]types.Composite, error) {
	rows, e := p.db.Query(`SELECT owner, op, left_factor, right_factor FROM composites`)
	if e != nil {
		return nil, e
	}
	defer rows.Close()

	defs := make([]types.Composite, 0)
	for rows.Next() {
		var owner, op, left, right string
		if e := rows.Scan(&owner, &op, &left, &right); e != nil {
			return nil, e
		}
		def, e := parseComposite(owner, op, left, right)
		if e != nil {
			return nil, e
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func parseComposite(owner, op, left, right string) (types.Composite, error) {
	groups := make([]types.Group, 0, 3)
	for _, name := range []string{owner, left, right} {
		o, e := types.ParseOwner(name)
		if e != nil {
			return types.Composite{}, e
		}
		g, ok := o.(types.Group)
		if !ok {
			return types.Composite{}, fmt.Errorf("%w: composite part %s is not a group", types.ErrSchema, name)
		}
		groups = append(groups, g)
	}
	return types.Composite{
		Owner: groups[0],
		Op:    types.CompositeOp(op),
		Left:  groups[1],
		Right: groups[2],
	}, nil
}

func (p *compositePersister) Watch(ctx context.Context) (<-chan types.CompositeChange, error) {
	return p.changes, nil
}
