package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/forgo/goodjobs/internal/schema"
)

func init() {
	// modernc registers itself as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLDB implements Database on top of sqlx.
type SQLDB struct {
	db      *sqlx.DB
	config  Config
	dialect schema.Dialect
}

// NewSQL creates a new, unconnected SQL database handle
func NewSQL(cfg Config) *SQLDB {
	if cfg.Driver == "" {
		cfg.Driver = string(schema.Postgres)
	}
	return &SQLDB{
		config:  cfg,
		dialect: dialectFor(cfg.Driver),
	}
}

// NewFromSQLX wraps an existing connection, mainly for tests with sqlmock.
func NewFromSQLX(db *sqlx.DB, dialect schema.Dialect) *SQLDB {
	return &SQLDB{db: db, dialect: dialect, config: Config{Driver: db.DriverName()}}
}

func dialectFor(driver string) schema.Dialect {
	switch driver {
	case "sqlite", "sqlite3":
		return schema.SQLite
	default:
		return schema.Postgres
	}
}

// DataSourceName builds the driver DSN from the config.
func (c Config) DataSourceName() string {
	if c.DSN != "" {
		return c.DSN
	}
	if dialectFor(c.Driver) == schema.SQLite {
		name := c.Name
		if name == "" {
			name = "goodjobs.db"
		}
		return "file:" + name + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.Name,
		RawQuery: "sslmode=" + sslmode,
	}
	return u.String()
}

// Connect opens the pool and verifies it with a ping
func (s *SQLDB) Connect(ctx context.Context) error {
	db, err := sqlx.Open(s.config.Driver, s.config.DataSourceName())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	if s.config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(s.config.MaxOpenConns)
	}
	if s.config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(s.config.MaxIdleConns)
	}
	if s.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(s.config.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	s.db = db
	return nil
}

// Close closes the pool
func (s *SQLDB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection is alive
func (s *SQLDB) Ping(ctx context.Context) error {
	if s.db == nil {
		return ErrConnection
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Dialect reports the SQL dialect of the connection
func (s *SQLDB) Dialect() schema.Dialect {
	return s.dialect
}

// Conn returns the pool as a Querier
func (s *SQLDB) Conn() Querier {
	return s.db
}

// DB exposes the underlying pool for migrations
func (s *SQLDB) DB() *sqlx.DB {
	return s.db
}

// WithTx runs fn in a transaction. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
func (s *SQLDB) WithTx(ctx context.Context, fn func(q Querier) error) (err error) {
	if s.db == nil {
		return ErrConnection
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrQuery, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrQuery, err)
	}
	return nil
}

// Classify maps driver errors onto the package sentinels while keeping the
// original error in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrDuplicate, err)
		case "23503", "23514":
			return fmt.Errorf("%w: %w", ErrConstraint, err)
		}
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", ErrDuplicate, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return fmt.Errorf("%w: %w", ErrConstraint, err)
		}
	}

	// Fall back to message matching for wrapped driver errors.
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return fmt.Errorf("%w: %w", ErrDuplicate, err)
	}

	return fmt.Errorf("%w: %w", ErrQuery, err)
}
