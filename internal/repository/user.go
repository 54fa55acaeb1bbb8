package repository

import (
	"context"
	"errors"

	"github.com/forgo/goodjobs/internal/database"
	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/schema"
)

const userColumns = `id, name, hash, is_admin, created_at`

// UserRepository handles user data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user and fills in its ID and CreatedAt. Names are unique;
// a taken name yields model.ErrUserExists.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return createUser(ctx, r.db.Conn(), user)
}

// Register inserts a self-registered user. The first user ever stored is
// made an administrator; the count and the insert share one transaction,
// with the users table locked on Postgres, so two racing first
// registrations cannot both become admin.
func (r *UserRepository) Register(ctx context.Context, user *model.User) error {
	return r.db.WithTx(ctx, func(q database.Querier) error {
		if r.db.Dialect() == schema.Postgres {
			if _, err := exec(ctx, q, `LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE`); err != nil {
				return err
			}
		}
		var existing int
		if err := get(ctx, q, &existing, nil, `SELECT COUNT(*) FROM users`); err != nil {
			return err
		}
		user.IsAdmin = existing == 0
		return createUser(ctx, q, user)
	})
}

func createUser(ctx context.Context, q database.Querier, user *model.User) error {
	var taken int
	if err := get(ctx, q, &taken, nil, `SELECT COUNT(*) FROM users WHERE name = ?`, user.Name); err != nil {
		return err
	}
	if taken > 0 {
		return model.ErrUserExists
	}

	user.CreatedAt = utcNow()
	id, err := insert(ctx, q,
		`INSERT INTO users (name, hash, is_admin, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		user.Name, user.Hash, user.IsAdmin, user.CreatedAt)
	if err != nil {
		// Lost a race with a concurrent insert of the same name.
		if errors.Is(err, database.ErrDuplicate) {
			return model.ErrUserExists
		}
		return err
	}
	user.ID = id
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return getUser(ctx, r.db.Conn(), id)
}

// GetByName retrieves a user by exact name
func (r *UserRepository) GetByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User
	if err := get(ctx, r.db.Conn(), &u, model.ErrUserNotFound, `SELECT `+userColumns+` FROM users WHERE name = ?`, name); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetAll lists every user ordered by ID
func (r *UserRepository) GetAll(ctx context.Context) ([]*model.User, error) {
	users := []*model.User{}
	if err := list(ctx, r.db.Conn(), &users, `SELECT `+userColumns+` FROM users ORDER BY id`); err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the number of registered users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := get(ctx, r.db.Conn(), &n, nil, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, err
	}
	return n, nil
}

// Update applies the non-nil fields of upd
func (r *UserRepository) Update(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error) {
	var updated *model.User
	err := r.db.WithTx(ctx, func(q database.Querier) error {
		u, err := getUser(ctx, q, id)
		if err != nil {
			return err
		}
		if upd.Name != nil && *upd.Name != u.Name {
			var taken int
			if err := get(ctx, q, &taken, nil, `SELECT COUNT(*) FROM users WHERE name = ? AND id <> ?`, *upd.Name, id); err != nil {
				return err
			}
			if taken > 0 {
				return model.ErrUserExists
			}
			u.Name = *upd.Name
		}
		if upd.Hash != nil {
			u.Hash = *upd.Hash
		}
		if _, err := exec(ctx, q, `UPDATE users SET name = ?, hash = ? WHERE id = ?`, u.Name, u.Hash, id); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return model.ErrUserExists
			}
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a user. Users that appear in any transfer are kept so the
// ledger stays complete; GoodJobs the user currently owns become unowned.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithTx(ctx, func(q database.Querier) error {
		if _, err := getUser(ctx, q, id); err != nil {
			return err
		}

		var transfers int
		if err := get(ctx, q, &transfers, nil,
			`SELECT COUNT(*) FROM transfers WHERE from_user_id = ? OR to_user_id = ?`, id, id); err != nil {
			return err
		}
		if transfers > 0 {
			return model.ErrUserHasTransfers
		}

		if _, err := exec(ctx, q, `UPDATE good_jobs SET current_owner_id = NULL WHERE current_owner_id = ?`, id); err != nil {
			return err
		}
		_, err := exec(ctx, q, `DELETE FROM users WHERE id = ?`, id)
		return err
	})
}
