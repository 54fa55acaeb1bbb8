// Package migrations creates the GoodJobs tables on startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/forgo/goodjobs/internal/schema"
)

// Execer is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply executes the ledger DDL for the given dialect. Every statement is
// idempotent so Apply is safe to run on each start.
func Apply(ctx context.Context, db Execer, dialect schema.Dialect) error {
	return ApplySchema(ctx, db, schema.Ledger, dialect)
}

// ApplySchema executes the DDL rendered from s.
func ApplySchema(ctx context.Context, db Execer, s *schema.Schema, dialect schema.Dialect) error {
	stmts, err := s.Statements(dialect)
	if err != nil {
		return err
	}
	for i, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
	}
	return nil
}
