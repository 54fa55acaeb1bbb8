package fixtures

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/forgo/goodjobs/internal/database"
	"github.com/forgo/goodjobs/internal/model"
)

// DefaultPassword is the password of every fixture user unless overridden
const DefaultPassword = "testpass123"

// Factory creates test entities in the database
type Factory struct {
	db database.Database
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{db: db}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return c
}

// LegacyHash returns the unsalted SHA-256 hex digest stored for password
func LegacyHash(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// ============================================================================
// User Fixtures
// ============================================================================

// UserOpts customizes user creation
type UserOpts struct {
	Name     string
	Password string
	IsAdmin  bool
}

// WithName sets the user name
func WithName(name string) func(*UserOpts) {
	return func(o *UserOpts) { o.Name = name }
}

// WithPassword sets the user password
func WithPassword(password string) func(*UserOpts) {
	return func(o *UserOpts) { o.Password = password }
}

// CreateUser creates a non-admin user with optional customizations
func (f *Factory) CreateUser(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()

	o := &UserOpts{
		Name:     fmt.Sprintf("user_%s", randomID()),
		Password: DefaultPassword,
	}
	for _, fn := range opts {
		fn(o)
	}

	u := &model.User{
		Name:      o.Name,
		Hash:      LegacyHash(o.Password),
		IsAdmin:   o.IsAdmin,
		CreatedAt: time.Now().UTC(),
	}
	q := f.db.Conn()
	err := q.QueryRowxContext(ctx(t),
		q.Rebind(`INSERT INTO users (name, hash, is_admin, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		u.Name, u.Hash, u.IsAdmin, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		t.Fatalf("fixtures: create user %q: %v", o.Name, err)
	}
	return u
}

// CreateAdmin creates an administrator
func (f *Factory) CreateAdmin(t *testing.T, opts ...func(*UserOpts)) *model.User {
	t.Helper()
	return f.CreateUser(t, append([]func(*UserOpts){func(o *UserOpts) {
		o.Name = fmt.Sprintf("admin_%s", randomID())
		o.IsAdmin = true
	}}, opts...)...)
}

// ============================================================================
// GoodJob Fixtures
// ============================================================================

// CreateGoodJob mints a GoodJob owned by owner (nil for unowned). Like the
// ledger's own create, no Transfer row is written.
func (f *Factory) CreateGoodJob(t *testing.T, owner *model.User) *model.GoodJob {
	t.Helper()

	now := time.Now().UTC()
	g := &model.GoodJob{GeneratedDate: now}
	var ownerID, lastTransfer interface{}
	if owner != nil {
		id := owner.ID
		g.CurrentOwnerID = &id
		g.LastTransferDate = &now
		g.CurrentOwner = owner.Ref()
		ownerID, lastTransfer = id, now
	}

	q := f.db.Conn()
	err := q.QueryRowxContext(ctx(t),
		q.Rebind(`INSERT INTO good_jobs (generated_date, current_owner_id, last_transfer_date) VALUES (?, ?, ?) RETURNING id`),
		g.GeneratedDate, ownerID, lastTransfer).Scan(&g.ID)
	if err != nil {
		t.Fatalf("fixtures: create good job: %v", err)
	}
	return g
}

// CreateGoodJobs mints n GoodJobs owned by owner
func (f *Factory) CreateGoodJobs(t *testing.T, owner *model.User, n int) []*model.GoodJob {
	t.Helper()
	jobs := make([]*model.GoodJob, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, f.CreateGoodJob(t, owner))
	}
	return jobs
}

// ForceOwner sets a GoodJob's owner without recording a transfer. It exists
// to build corrupted ledgers for audit tests.
func (f *Factory) ForceOwner(t *testing.T, goodJobID, ownerID int64) {
	t.Helper()
	q := f.db.Conn()
	if _, err := q.ExecContext(ctx(t), q.Rebind(`UPDATE good_jobs SET current_owner_id = ? WHERE id = ?`), ownerID, goodJobID); err != nil {
		t.Fatalf("fixtures: force owner: %v", err)
	}
}

// TransferCount returns the number of transfers recorded for a GoodJob
func (f *Factory) TransferCount(t *testing.T, goodJobID int64) int {
	t.Helper()
	var n int
	q := f.db.Conn()
	if err := sqlx.GetContext(ctx(t), q, &n, q.Rebind(`SELECT COUNT(*) FROM transfers WHERE good_job_id = ?`), goodJobID); err != nil {
		t.Fatalf("fixtures: count transfers: %v", err)
	}
	return n
}
