package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/goodjobs/internal/schema"
)

func newMockDB(t *testing.T) (*SQLDB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = raw.Close() })
	return NewFromSQLX(sqlx.NewDb(raw, "postgres"), schema.Postgres), mock
}

// ============================================================================
// WithTx
// ============================================================================

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE good_jobs").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.WithTx(context.Background(), func(q Querier) error {
		_, err := q.ExecContext(context.Background(), "UPDATE good_jobs SET current_owner_id = $1", 2)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.WithTx(context.Background(), func(q Querier) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = db.WithTx(context.Background(), func(q Querier) error {
			panic("kaboom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitFailure(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := db.WithTx(context.Background(), func(q Querier) error { return nil })

	assert.ErrorIs(t, err, ErrQuery)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_NotConnected(t *testing.T) {
	db := NewSQL(Config{Driver: "postgres"})
	err := db.WithTx(context.Background(), func(q Querier) error { return nil })
	assert.ErrorIs(t, err, ErrConnection)
}

// ============================================================================
// Classify
// ============================================================================

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"pq unique", &pq.Error{Code: "23505"}, ErrDuplicate},
		{"pq foreign key", &pq.Error{Code: "23503"}, ErrConstraint},
		{"sqlite message", errors.New("constraint failed: UNIQUE constraint failed: users.name (2067)"), ErrDuplicate},
		{"other", errors.New("syntax error"), ErrQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	assert.NoError(t, Classify(nil))
}

// ============================================================================
// Config
// ============================================================================

func TestConfig_DataSourceName(t *testing.T) {
	t.Parallel()

	pg := Config{Driver: "postgres", Host: "db", Port: "5432", User: "gj", Password: "secret", Name: "goodjobs"}
	assert.Equal(t, "postgres://gj:secret@db:5432/goodjobs?sslmode=disable", pg.DataSourceName())

	lite := Config{Driver: "sqlite", Name: "ledger.db"}
	assert.Equal(t, "file:ledger.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", lite.DataSourceName())

	explicit := Config{Driver: "sqlite", DSN: "file::memory:"}
	assert.Equal(t, "file::memory:", explicit.DataSourceName())
}

func TestNewSQL_Dialect(t *testing.T) {
	t.Parallel()

	assert.Equal(t, schema.Postgres, NewSQL(Config{}).Dialect())
	assert.Equal(t, schema.SQLite, NewSQL(Config{Driver: "sqlite"}).Dialect())
}
