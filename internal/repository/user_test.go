package repository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/testing/fixtures"
	"github.com/forgo/goodjobs/internal/testing/testdb"
)

func setupUsers(t *testing.T) (*UserRepository, *fixtures.Factory, *testdb.TestDB) {
	t.Helper()
	tdb := testdb.New(t)
	return NewUserRepository(tdb.DB), fixtures.New(tdb.DB), tdb
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	t.Parallel()
	repo, _, tdb := setupUsers(t)
	ctx := tdb.Ctx()

	u := &model.User{Name: "alice", Hash: fixtures.LegacyHash("pw")}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Name)
	assert.Equal(t, u.Hash, byID.Hash)
	assert.False(t, byID.IsAdmin)

	byName, err := repo.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
}

func TestUserRepository_Create_DuplicateName(t *testing.T) {
	t.Parallel()
	repo, f, tdb := setupUsers(t)
	f.CreateUser(t, fixtures.WithName("alice"))

	err := repo.Create(tdb.Ctx(), &model.User{Name: "alice", Hash: "x"})

	assert.ErrorIs(t, err, model.ErrUserExists)
	assert.Equal(t, "User already exists", err.Error())
	assert.Equal(t, 1, tdb.Count("users"))
}

func TestUserRepository_NamesAreCaseSensitive(t *testing.T) {
	t.Parallel()
	repo, f, tdb := setupUsers(t)
	f.CreateUser(t, fixtures.WithName("alice"))

	require.NoError(t, repo.Create(tdb.Ctx(), &model.User{Name: "Alice", Hash: "x"}))
}

func TestUserRepository_NotFound(t *testing.T) {
	t.Parallel()
	repo, _, tdb := setupUsers(t)
	ctx := tdb.Ctx()

	_, err := repo.GetByID(ctx, 404)
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = repo.GetByName(ctx, "ghost")
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	_, err = repo.Update(ctx, 404, model.UserUpdate{Name: ptr("x")})
	assert.ErrorIs(t, err, model.ErrUserNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, 404), model.ErrUserNotFound)
}

func TestUserRepository_GetAllAndCount(t *testing.T) {
	t.Parallel()
	repo, f, tdb := setupUsers(t)
	ctx := tdb.Ctx()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.CreateUser(t)
	f.CreateAdmin(t)

	users, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Less(t, users[0].ID, users[1].ID)
	assert.True(t, users[1].IsAdmin)

	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUserRepository_Update(t *testing.T) {
	t.Parallel()
	repo, f, tdb := setupUsers(t)
	ctx := tdb.Ctx()
	alice := f.CreateUser(t, fixtures.WithName("alice"))
	f.CreateUser(t, fixtures.WithName("bob"))

	updated, err := repo.Update(ctx, alice.ID, model.UserUpdate{Name: ptr("alicia"), Hash: ptr("newhash")})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Name)
	assert.Equal(t, "newhash", updated.Hash)

	_, err = repo.Update(ctx, alice.ID, model.UserUpdate{Name: ptr("bob")})
	assert.ErrorIs(t, err, model.ErrUserExists)

	same, err := repo.Update(ctx, alice.ID, model.UserUpdate{Name: ptr("alicia")})
	require.NoError(t, err)
	assert.Equal(t, "alicia", same.Name)
}

func TestUserRepository_Delete_ReleasesOwnedGoodJobs(t *testing.T) {
	t.Parallel()
	repo, f, tdb := setupUsers(t)
	ctx := tdb.Ctx()
	alice := f.CreateUser(t)
	job := f.CreateGoodJob(t, alice)

	require.NoError(t, repo.Delete(ctx, alice.ID))

	ledger := NewGoodJobRepository(tdb.DB)
	got, err := ledger.GetByID(ctx, job.ID, false)
	require.NoError(t, err)
	assert.Nil(t, got.CurrentOwnerID)
	assert.Equal(t, 0, tdb.Count("users"))
}

func TestUserRepository_Delete_KeepsLedgerParticipants(t *testing.T) {
	t.Parallel()
	repo, f, tdb := setupUsers(t)
	ctx := tdb.Ctx()
	alice, bob := f.CreateUser(t), f.CreateUser(t)
	job := f.CreateGoodJob(t, alice)
	now := time.Now().UTC()
	_, err := NewGoodJobRepository(tdb.DB).AddTransfer(ctx, model.NewTransfer{GoodJobID: job.ID, FromUserID: alice.ID, ToUserID: bob.ID, Date: &now})
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, alice.ID), model.ErrUserHasTransfers)
	assert.ErrorIs(t, repo.Delete(ctx, bob.ID), model.ErrUserHasTransfers)
	assert.Equal(t, 2, tdb.Count("users"))
}

func TestUserRepository_Register_FirstUserIsAdmin(t *testing.T) {
	t.Parallel()
	repo, _, tdb := setupUsers(t)
	ctx := tdb.Ctx()

	first := &model.User{Name: "root", Hash: "x", IsAdmin: false}
	require.NoError(t, repo.Register(ctx, first))
	second := &model.User{Name: "alice", Hash: "x", IsAdmin: true}
	require.NoError(t, repo.Register(ctx, second))

	assert.True(t, first.IsAdmin)
	assert.False(t, second.IsAdmin, "only the first registration is promoted")
	err := repo.Register(ctx, &model.User{Name: "alice", Hash: "y"})
	assert.ErrorIs(t, err, model.ErrUserExists)
}

func TestUserRepository_Register_ConcurrentFirstUsers(t *testing.T) {
	t.Parallel()
	const racers = 6
	tdb := testdb.NewConcurrent(t, racers)
	repo := NewUserRepository(tdb.DB)
	ctx := tdb.Ctx()

	users := make([]*model.User, racers)
	errs := make([]error, racers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range users {
		users[i] = &model.User{Name: fmt.Sprintf("racer-%d", i), Hash: "x"}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = repo.Register(ctx, users[i])
		}(i)
	}
	close(start)
	wg.Wait()

	admins := 0
	for i, u := range users {
		require.NoError(t, errs[i])
		if u.IsAdmin {
			admins++
		}
	}
	assert.Equal(t, 1, admins)
	assert.Equal(t, racers, tdb.Count("users"))
}
