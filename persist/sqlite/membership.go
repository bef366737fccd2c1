package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saltybeagle/grouper/types"
)

var _ types.MembershipPersister = (*membershipPersister)(nil)

type membershipPersister struct {
	db      *sql.DB
	changes chan types.MembershipPolicyChange
}

func newMembershipPersister(ctx context.Context, db *sql.DB) *membershipPersister {
	p := &membershipPersister{
		db:      db,
		changes: make(chan types.MembershipPolicyChange),
	}

	go func() {
		<-ctx.Done()
		close(p.changes)
	}()

	return p
}

func (p *membershipPersister) Insert(g types.Group, field string, m types.Member) error {
	res, e := p.db.Exec(
		`INSERT OR IGNORE INTO memberships (owner, field, member) VALUES (?, ?, ?)`,
		g.String(), field, m.String(),
	)
	if e != nil {
		return e
	}
	if n, e := res.RowsAffected(); e != nil {
		return e
	} else if n == 0 {
		return fmt.Errorf("%w: %s on %s/%s", types.ErrAlreadyExists, m, g, field)
	}

	p.changes <- types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{Owner: g, Field: field, Member: m},
		Method:           types.PersistInsert,
	}
	return nil
}

func (p *membershipPersister) Remove(g types.Group, field string, m types.Member) error {
	res, e := p.db.Exec(
		`DELETE FROM memberships WHERE owner = ? AND field = ? AND member = ?`,
		g.String(), field, m.String(),
	)
	if e != nil {
		return e
	}
	if n, e := res.RowsAffected(); e != nil {
		return e
	} else if n == 0 {
		return fmt.Errorf("%w: %s on %s/%s", types.ErrNotFound, m, g, field)
	}

	p.changes <- types.MembershipPolicyChange{
		MembershipPolicy: types.MembershipPolicy{Owner: g, Field: field, Member: m},
		Method:           types.PersistDelete,
	}
	return nil
}

func (p *membershipPersister) RemoveByOwner(g types.Group) error {
	removed, e := p.removeWhere(`owner = ?`, g.String())
	if e != nil {
		return e
	}
	p.report(removed)
	return nil
}

func (p *membershipPersister) RemoveByMember(m types.Member) error {
	removed, e := p.removeWhere(`member = ?`, m.String())
	if e != nil {
		return e
	}
	p.report(removed)
	return nil
}

// removeWhere deletes matching edges and returns them, so watchers hear about
// each one
func (p *membershipPersister) removeWhere(cond string, args ...any) ([]types.MembershipPolicy, error) {
	tx, e := p.db.Begin()
	if e != nil {
		return nil, e
	}
	defer tx.Rollback()

	rows, e := tx.Query(`SELECT owner, field, member FROM memberships WHERE `+cond, args...)
	if e != nil {
		return nil, e
	}
	removed, e := scanMemberships(rows)
	if e != nil {
		return nil, e
	}

	if _, e := tx.Exec(`DELETE FROM memberships WHERE `+cond, args...); e != nil {
		return nil, e
	}
	if e := tx.Commit(); e != nil {
		return nil, e
	}
	return removed, nil
}

func (p *membershipPersister) report(removed []types.MembershipPolicy) {
	for _, policy := range removed {
		p.changes <- types.MembershipPolicyChange{MembershipPolicy: policy, Method: types.PersistDelete}
	}
}

func (p *membershipPersister) List() ([]types.MembershipPolicy, error) {
	rows, e := p.db.Query(`SELECT owner, field, member FROM memberships`)
	if e != nil {
		return nil, e
	}
	return scanMemberships(rows)
}

func scanMemberships(rows *sql.Rows) ([]types.MembershipPolicy, error) {
	defer rows.Close()

	policies := make([]types.MembershipPolicy, 0)
	for rows.Next() {
		var owner, field, member string
		if e := rows.Scan(&owner, &field, &member); e != nil {
			return nil, e
		}
		o, e := types.ParseOwner(owner)
		if e != nil {
			return nil, e
		}
		g, ok := o.(types.Group)
		if !ok {
			return nil, fmt.Errorf("%w: membership owner %s is not a group", types.ErrSchema, owner)
		}
		m, e := types.ParseMember(member)
		if e != nil {
			return nil, e
		}
		policies = append(policies, types.MembershipPolicy{Owner: g, Field: field, Member: m})
	}
	return policies, rows.Err()
}

func (p *membershipPersister) Watch(ctx context.Context) (<-chan types.MembershipPolicyChange, error) {
	return p.changes, nil
}
