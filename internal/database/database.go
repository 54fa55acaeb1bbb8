// Package database provides the relational persistence layer for GoodJobs.
//
// It wraps *sqlx.DB for PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite)
// behind the Database interface. Queries are written with '?' placeholders
// and rebound for the active driver by the caller via Querier.Rebind.
//
// # Transactions
//
// WithTx runs a function inside a real connection-level transaction. The
// function receives a Querier bound to the transaction; returning an error
// (or panicking) rolls back, returning nil commits.
//
// # Error Handling
//
// Standard errors are defined for common failure cases:
//   - ErrNotFound: Record does not exist
//   - ErrDuplicate: Unique constraint violation
//   - ErrConnection: Database connection issues
//   - ErrQuery: Query execution failures
//
// Use errors.Is() to check error types:
//
//	if errors.Is(err, database.ErrDuplicate) {
//	    // Handle duplicate name
//	}
package database

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgo/goodjobs/internal/schema"
)

// Standard errors for database operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate indicates a unique constraint violation (e.g., duplicate user name).
	ErrDuplicate = errors.New("duplicate record")

	// ErrConnection indicates a failure to connect to or communicate with the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure (syntax error, invalid reference, etc.).
	ErrQuery = errors.New("query error")

	// ErrConstraint indicates a foreign key or check constraint violation.
	ErrConstraint = errors.New("constraint violation")
)

// Querier is implemented by both *sqlx.DB and *sqlx.Tx. Use it with
// sqlx.GetContext and sqlx.SelectContext.
type Querier interface {
	sqlx.ExtContext
}

// Database defines the interface for database operations
type Database interface {
	// Connection management
	Connect(ctx context.Context) error
	Close() error
	Ping(ctx context.Context) error

	// Dialect reports which SQL flavour the connection speaks
	Dialect() schema.Dialect

	// Conn returns a Querier for statements outside a transaction
	Conn() Querier

	// WithTx runs fn inside a single transaction
	WithTx(ctx context.Context, fn func(q Querier) error) error
}

// Config holds database configuration
type Config struct {
	Driver   string // "postgres" or "sqlite"
	DSN      string // overrides the discrete fields when set
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
