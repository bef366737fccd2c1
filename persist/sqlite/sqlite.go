// Package sqlite persists registry facts in a SQLite database. All four
// persister contracts are covered, so a single file on disk can back a whole
// registry. Watch channels report local writes only: SQLite has no change
// stream, so multi-process coordination needs a different store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/saltybeagle/grouper/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS memberships (
	owner  TEXT NOT NULL,
	field  TEXT NOT NULL,
	member TEXT NOT NULL,
	PRIMARY KEY (owner, field, member)
);

CREATE TABLE IF NOT EXISTS composites (
	owner        TEXT NOT NULL PRIMARY KEY,
	op           TEXT NOT NULL,
	left_factor  TEXT NOT NULL,
	right_factor TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS grants (
	owner     TEXT NOT NULL,
	grantee   TEXT NOT NULL,
	privilege INTEGER NOT NULL,
	PRIMARY KEY (owner, grantee)
);

CREATE TABLE IF NOT EXISTS namespace (
	kind  TEXT NOT NULL,
	name  TEXT NOT NULL,
	field TEXT NOT NULL DEFAULT '',
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (kind, name, field)
);
`

// Store opens the four persister contracts over one SQLite database
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and prepares the schema
func Open(path string) (*Store, error) {
	db, e := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if e != nil {
		return nil, fmt.Errorf("open sqlite store: %w", e)
	}
	// sqlite allows one writer at a time
	db.SetMaxOpenConns(1)

	if _, e := db.Exec(schema); e != nil {
		db.Close()
		return nil, fmt.Errorf("prepare sqlite schema: %w", e)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// MembershipPersister hands out the membership contract
func (s *Store) MembershipPersister(ctx context.Context) types.MembershipPersister {
	return newMembershipPersister(ctx, s.db)
}

// CompositePersister hands out the composite contract
func (s *Store) CompositePersister(ctx context.Context) types.CompositePersister {
	return newCompositePersister(ctx, s.db)
}

// GrantPersister hands out the grant contract
func (s *Store) GrantPersister(ctx context.Context) types.GrantPersister {
	return newGrantPersister(ctx, s.db)
}

// NamespacePersister hands out the namespace contract
func (s *Store) NamespacePersister(ctx context.Context) types.NamespacePersister {
	return newNamespacePersister(ctx, s.db)
}
