package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgo/goodjobs/internal/database"
	"github.com/forgo/goodjobs/internal/model"
)

// get runs a single-row query with '?' placeholders rebound for the driver.
// A missing row becomes notFound; other failures are classified.
func get(ctx context.Context, q database.Querier, dest interface{}, notFound error, query string, args ...interface{}) error {
	err := sqlx.GetContext(ctx, q, dest, q.Rebind(query), args...)
	if err == nil {
		return nil
	}
	err = database.Classify(err)
	if notFound != nil && errors.Is(err, database.ErrNotFound) {
		return notFound
	}
	return err
}

// list runs a multi-row query with '?' placeholders rebound for the driver
func list(ctx context.Context, q database.Querier, dest interface{}, query string, args ...interface{}) error {
	if err := sqlx.SelectContext(ctx, q, dest, q.Rebind(query), args...); err != nil {
		return database.Classify(err)
	}
	return nil
}

// exec runs a statement and returns the number of affected rows
func exec(ctx context.Context, q database.Querier, query string, args ...interface{}) (int64, error) {
	res, err := q.ExecContext(ctx, q.Rebind(query), args...)
	if err != nil {
		return 0, database.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, database.Classify(err)
	}
	return n, nil
}

// insert runs an INSERT ... RETURNING id statement
func insert(ctx context.Context, q database.Querier, query string, args ...interface{}) (int64, error) {
	var id int64
	if err := q.QueryRowxContext(ctx, q.Rebind(query), args...).Scan(&id); err != nil {
		return 0, database.Classify(err)
	}
	return id, nil
}

func getUser(ctx context.Context, q database.Querier, id int64) (*model.User, error) {
	var u model.User
	if err := get(ctx, q, &u, model.ErrUserNotFound, `SELECT `+userColumns+` FROM users WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

func countOwned(ctx context.Context, q database.Querier, ownerID int64) (int, error) {
	var n int
	if err := get(ctx, q, &n, nil, `SELECT COUNT(*) FROM good_jobs WHERE current_owner_id = ?`, ownerID); err != nil {
		return 0, err
	}
	return n, nil
}

// nullInt64 and nullTime turn optional values into driver arguments
func nullInt64(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullTime(p *time.Time) interface{} {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func utcNow() time.Time {
	return time.Now().UTC()
}
