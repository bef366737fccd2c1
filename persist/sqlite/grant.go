package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saltybeagle/grouper/types"
)

var _ types.GrantPersister = (*grantPersister)(nil)

type grantPersister struct {
	db      *sql.DB
	changes chan types.GrantPolicyChange
}

func newGrantPersister(ctx context.Context, db *sql.DB) *grantPersister {
	p := &grantPersister{
		db:      db,
		changes: make(chan types.GrantPolicyChange),
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *grantPersister) Upsert(o types.Owner, g types.Member, priv types.Privilege) error {
	_, e := p.db.Exec(
		`INSERT INTO grants (owner, grantee, privilege) VALUES (?, ?, ?)
		 ON CONFLICT (owner, grantee) DO UPDATE SET privilege = excluded.privilege`,
		o.String(), g.String(), uint32(priv),
	)
	if e != nil {
		return e
	}

	p.changes <- types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Owner: o, Grantee: g, Privilege: priv},
		Method:      types.PersistUpdate,
	}
	return nil
}

func (p *grantPersister) Remove(o types.Owner, g types.Member) error {
	res, e := p.db.Exec(`DELETE FROM grants WHERE owner = ? AND grantee = ?`, o.String(), g.String())
	if e != nil {
		return e
	}
	if n, e := res.RowsAffected(); e != nil {
		return e
	} else if n == 0 {
		return fmt.Errorf("%w: grant %s on %s", types.ErrNotFound, g, o)
	}

	p.changes <- types.GrantPolicyChange{
		GrantPolicy: types.GrantPolicy{Owner: o, Grantee: g},
		Method:      types.PersistDelete,
	}
	return nil
}

func (p *grantPersister) RemoveByOwner(o types.Owner) error {
	tx, e := p.db.Begin()
	if e != nil {
		return e
	}
	defer tx.Rollback()

	rows, e := tx.Query(`SELECT grantee FROM grants WHERE owner = ?`, o.String())
	if e != nil {
		return e
	}
	grantees := make([]types.Member, 0)
	for rows.Next() {
		var grantee string
		if e := rows.Scan(&grantee); e != nil {
			rows.Close()
			return e
		}
		m, e := types.ParseMember(grantee)
		if e != nil {
			rows.Close()
			return e
		}
		grantees = append(grantees, m)
	}
	rows.Close()
	if e := rows.Err(); e != nil {
		return e
	}

	if _, e := tx.Exec(`DELETE FROM grants WHERE owner = ?`, o.String()); e != nil {
		return e
	}
	if e := tx.Commit(); e != nil {
		return e
	}

	for _, g := range grantees {
		p.changes <- types.GrantPolicyChange{
			GrantPolicy: types.GrantPolicy{Owner: o, Grantee: g},
			Method:      types.PersistDelete,
		}
	}
	return nil
}

func (p *grantPersister) List() ([]types.GrantPolicy, error) {
	rows, e := p.db.Query(`SELECT owner, grantee, privilege FROM grants`)
	if e != nil {
		return nil, e
	}
	defer rows.Close()

	out := make([]types.GrantPolicy, 0)
	for rows.Next() {
		var owner, grantee string
		var priv uint32
		if e := rows.Scan(&owner, &grantee, &priv); e != nil {
			return nil, e
		}
		o, e := types.ParseOwner(owner)
		if e != nil {
			return nil, e
		}
		g, e := types.ParseMember(grantee)
		if e != nil {
			return nil, e
		}
		out = append(out, types.GrantPolicy{Owner: o, Grantee: g, Privilege: types.Privilege(priv)})
	}
	return out, rows.Err()
}

func (p *grantPersister) Watch(ctx context.Context) (<-chan types.GrantPolicyChange, error) {
	return p.changes, nil
}
