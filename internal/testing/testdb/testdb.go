// Package testdb provides test database utilities for repository, service
// and end-to-end tests.
//
// Every TestDB is a private in-memory SQLite database with the ledger schema
// applied, so tests run real SQL without an external server.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    tdb := testdb.New(t)
//	    repo := repository.NewGoodJobRepository(tdb.DB)
//	}
package testdb

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forgo/goodjobs/internal/database"
	"github.com/forgo/goodjobs/internal/migrations"
)

// TestDB provides an isolated database environment for testing.
type TestDB struct {
	DB   *database.SQLDB
	Name string
	t    *testing.T
}

var counter atomic.Int64

// uniqueName generates a unique database name for test isolation
func uniqueName() string {
	return fmt.Sprintf("test_%d_%d", time.Now().UnixNano(), counter.Add(1))
}

// New creates a new isolated test database with the schema applied.
// The database is closed automatically when the test finishes.
func New(t *testing.T) *TestDB {
	t.Helper()
	name := uniqueName()
	return open(t, name, database.Config{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name),
		// A single connection keeps the in-memory database alive and
		// serializes writers the way a real deployment's row locks would.
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
}

// NewConcurrent creates a file-backed test database that hands out up to
// conns connections, so transactions from different goroutines really
// contend. Writers take the lock at BEGIN and wait on each other through
// the busy timeout.
func NewConcurrent(t *testing.T, conns int) *TestDB {
	t.Helper()
	name := uniqueName()
	path := filepath.Join(t.TempDir(), name+".db")
	return open(t, name, database.Config{
		Driver: "sqlite",
		DSN: fmt.Sprintf("file:%s?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)",
			path),
		MaxOpenConns: conns,
		MaxIdleConns: conns,
	})
}

func open(t *testing.T, name string, cfg database.Config) *TestDB {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.NewSQL(cfg)
	if err := db.Connect(ctx); err != nil {
		t.Fatalf("testdb: failed to connect: %v", err)
	}

	if err := migrations.Apply(ctx, db.DB(), db.Dialect()); err != nil {
		_ = db.Close()
		t.Fatalf("testdb: migrations failed: %v", err)
	}

	tdb := &TestDB{DB: db, Name: name, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close releases the database. The in-memory data is discarded.
func (tdb *TestDB) Close() {
	if tdb.DB == nil {
		return
	}
	_ = tdb.DB.Close()
	tdb.DB = nil
}

// Reset clears all rows while preserving the schema.
func (tdb *TestDB) Reset(t *testing.T) {
	t.Helper()
	for _, table := range []string{"transfers", "good_jobs", "users"} {
		tdb.MustExec("DELETE FROM " + table)
	}
}

// Ctx returns a context with a reasonable timeout for test operations.
func (tdb *TestDB) Ctx() context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	tdb.t.Cleanup(cancel)
	return ctx
}

// MustExec executes a statement and fails the test on error.
func (tdb *TestDB) MustExec(query string, args ...interface{}) {
	tdb.t.Helper()
	if _, err := tdb.DB.DB().ExecContext(tdb.Ctx(), query, args...); err != nil {
		tdb.t.Fatalf("testdb: exec failed: %v\nquery: %s", err, query)
	}
}

// Count returns the number of rows in table.
func (tdb *TestDB) Count(table string) int {
	tdb.t.Helper()
	var n int
	if err := tdb.DB.DB().GetContext(tdb.Ctx(), &n, "SELECT COUNT(*) FROM "+table); err != nil {
		tdb.t.Fatalf("testdb: count %s failed: %v", table, err)
	}
	return n
}
