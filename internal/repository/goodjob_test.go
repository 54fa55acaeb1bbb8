package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/testing/fixtures"
	"github.com/forgo/goodjobs/internal/testing/testdb"
)

type ledgerEnv struct {
	tdb  *testdb.TestDB
	f    *fixtures.Factory
	repo *GoodJobRepository
	ctx  context.Context
}

func setupLedger(t *testing.T) *ledgerEnv {
	t.Helper()
	tdb := testdb.New(t)
	return &ledgerEnv{
		tdb:  tdb,
		f:    fixtures.New(tdb.DB),
		repo: NewGoodJobRepository(tdb.DB),
		ctx:  tdb.Ctx(),
	}
}

func (e *ledgerEnv) transfer(t *testing.T, jobID int64, from, to *model.User, at time.Time) *model.Transfer {
	t.Helper()
	tr, err := e.repo.AddTransfer(e.ctx, model.NewTransfer{GoodJobID: jobID, FromUserID: from.ID, ToUserID: to.ID, Date: &at})
	require.NoError(t, err)
	return tr
}

func ptr[T any](v T) *T { return &v }

// ============================================================================
// Create
// ============================================================================

func TestGoodJobRepository_Create_WithOwner(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice := e.f.CreateUser(t)

	job, err := e.repo.Create(e.ctx, model.NewGoodJob{InitialOwnerID: &alice.ID})

	require.NoError(t, err)
	require.NotNil(t, job.CurrentOwnerID)
	assert.Equal(t, alice.ID, *job.CurrentOwnerID)
	require.NotNil(t, job.CurrentOwner)
	assert.Equal(t, alice.Name, job.CurrentOwner.Name)
	assert.NotNil(t, job.LastTransferDate)
	assert.Equal(t, 0, e.tdb.Count("transfers"), "initial assignment must not write a transfer")
}

func TestGoodJobRepository_Create_Unowned(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	generated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	job, err := e.repo.Create(e.ctx, model.NewGoodJob{GeneratedDate: &generated})

	require.NoError(t, err)
	assert.Nil(t, job.CurrentOwnerID)
	assert.Nil(t, job.CurrentOwner)
	assert.Nil(t, job.LastTransferDate)
	assert.True(t, generated.Equal(job.GeneratedDate))
}

func TestGoodJobRepository_Create_AdminOwnerRejected(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	admin := e.f.CreateAdmin(t)

	_, err := e.repo.Create(e.ctx, model.NewGoodJob{InitialOwnerID: &admin.ID})

	assert.ErrorIs(t, err, model.ErrAdminCannotOwn)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, 0, e.tdb.Count("good_jobs"))
}

func TestGoodJobRepository_Create_UnknownOwner(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)

	_, err := e.repo.Create(e.ctx, model.NewGoodJob{InitialOwnerID: ptr(int64(999))})

	assert.ErrorIs(t, err, model.ErrUserNotFound)
	assert.Equal(t, 0, e.tdb.Count("good_jobs"))
}

// ============================================================================
// Reads
// ============================================================================

func TestGoodJobRepository_GetByID_NotFound(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)

	_, err := e.repo.GetByID(e.ctx, 42, false)

	assert.ErrorIs(t, err, model.ErrGoodJobNotFound)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestGoodJobRepository_GetByID_IncludeTransfersNewestFirst(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	job := e.f.CreateGoodJob(t, alice)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	e.transfer(t, job.ID, alice, bob, base)
	e.transfer(t, job.ID, bob, alice, base.Add(time.Hour))

	got, err := e.repo.GetByID(e.ctx, job.ID, true)
	require.NoError(t, err)
	require.Len(t, got.Transfers, 2)
	assert.Equal(t, bob.ID, got.Transfers[0].FromUserID)
	assert.Equal(t, alice.ID, got.Transfers[1].FromUserID)
	assert.Equal(t, bob.Name, got.Transfers[0].FromUser.Name)
	assert.Equal(t, alice.Name, got.Transfers[0].ToUser.Name)
}

func TestGoodJobRepository_GetByOwner_CountMatches(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	e.f.CreateGoodJobs(t, alice, 3)
	e.f.CreateGoodJob(t, bob)
	e.f.CreateGoodJob(t, nil)

	for _, u := range []*model.User{alice, bob} {
		jobs, err := e.repo.GetByOwner(e.ctx, u.ID)
		require.NoError(t, err)
		n, err := e.repo.CountByOwner(e.ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, len(jobs), n)
		for i := 1; i < len(jobs); i++ {
			assert.Less(t, jobs[i-1].ID, jobs[i].ID)
		}
	}

	n, err := e.repo.CountByOwner(e.ctx, 12345)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGoodJobRepository_GetAll(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	first := e.f.CreateGoodJob(t, alice)
	e.f.CreateGoodJob(t, nil)
	e.transfer(t, first.ID, alice, bob, time.Now().UTC())

	jobs, err := e.repo.GetAll(e.ctx, true)

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Len(t, jobs[0].Transfers, 1)
	assert.Empty(t, jobs[1].Transfers)
}

// ============================================================================
// AddTransfer
// ============================================================================

func TestGoodJobRepository_AddTransfer_Balances(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	jobs := e.f.CreateGoodJobs(t, alice, 3)
	e.f.CreateGoodJob(t, bob)

	tr, err := e.repo.AddTransfer(e.ctx, model.NewTransfer{GoodJobID: jobs[0].ID, FromUserID: alice.ID, ToUserID: bob.ID})

	require.NoError(t, err)
	assert.Equal(t, 2, tr.BalanceAfterFrom)
	assert.Equal(t, 2, tr.BalanceAfterTo)
	assert.Equal(t, alice.Name, tr.FromUser.Name)
	assert.Equal(t, bob.Name, tr.ToUser.Name)

	aliceCount, _ := e.repo.CountByOwner(e.ctx, alice.ID)
	bobCount, _ := e.repo.CountByOwner(e.ctx, bob.ID)
	assert.Equal(t, tr.BalanceAfterFrom, aliceCount)
	assert.Equal(t, tr.BalanceAfterTo, bobCount)

	job, err := e.repo.GetByID(e.ctx, jobs[0].ID, false)
	require.NoError(t, err)
	assert.True(t, job.OwnedBy(bob.ID))
	require.NotNil(t, job.LastTransferDate)
	assert.True(t, tr.Date.Equal(*job.LastTransferDate))
}

func TestGoodJobRepository_AddTransfer_Preconditions(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob, carol := e.f.CreateUser(t), e.f.CreateUser(t), e.f.CreateUser(t)
	admin := e.f.CreateAdmin(t)
	job := e.f.CreateGoodJob(t, alice)

	tests := []struct {
		name string
		in   model.NewTransfer
		want error
	}{
		{"missing good job", model.NewTransfer{GoodJobID: 9999, FromUserID: alice.ID, ToUserID: bob.ID}, model.ErrGoodJobNotFound},
		{"not owner", model.NewTransfer{GoodJobID: job.ID, FromUserID: bob.ID, ToUserID: carol.ID}, model.ErrNotOwner},
		{"admin recipient", model.NewTransfer{GoodJobID: job.ID, FromUserID: alice.ID, ToUserID: admin.ID}, model.ErrAdminCannotReceive},
		{"missing recipient", model.NewTransfer{GoodJobID: job.ID, FromUserID: alice.ID, ToUserID: 9999}, model.ErrUserNotFound},
		{"self transfer", model.NewTransfer{GoodJobID: job.ID, FromUserID: alice.ID, ToUserID: alice.ID}, model.ErrSelfTransfer},
		// Ownership is checked before the recipient.
		{"not owner and admin recipient", model.NewTransfer{GoodJobID: job.ID, FromUserID: bob.ID, ToUserID: admin.ID}, model.ErrNotOwner},
		// Existence is checked before ownership.
		{"missing job and not owner", model.NewTransfer{GoodJobID: 9999, FromUserID: bob.ID, ToUserID: admin.ID}, model.ErrGoodJobNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.repo.AddTransfer(e.ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := e.repo.GetByID(e.ctx, job.ID, false)
	require.NoError(t, err)
	assert.True(t, got.OwnedBy(alice.ID), "failed transfers must not move the GoodJob")
	assert.Equal(t, 0, e.tdb.Count("transfers"))
}

func TestGoodJobRepository_AddTransfer_SecondTransferBySameSenderFails(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob, carol := e.f.CreateUser(t), e.f.CreateUser(t), e.f.CreateUser(t)
	job := e.f.CreateGoodJob(t, alice)

	_, err := e.repo.AddTransfer(e.ctx, model.NewTransfer{GoodJobID: job.ID, FromUserID: alice.ID, ToUserID: bob.ID})
	require.NoError(t, err)
	_, err = e.repo.AddTransfer(e.ctx, model.NewTransfer{GoodJobID: job.ID, FromUserID: alice.ID, ToUserID: carol.ID})

	assert.ErrorIs(t, err, model.ErrNotOwner)
	assert.Equal(t, 1, e.f.TransferCount(t, job.ID))
}

func TestGoodJobRepository_AddTransfer_ConcurrentSendersOnlyOneCommits(t *testing.T) {
	t.Parallel()
	const senders = 8
	tdb := testdb.NewConcurrent(t, senders)
	f := fixtures.New(tdb.DB)
	repo := NewGoodJobRepository(tdb.DB)
	ctx := tdb.Ctx()

	alice := f.CreateUser(t)
	job := f.CreateGoodJob(t, alice)
	recipients := make([]*model.User, senders)
	for i := range recipients {
		recipients[i] = f.CreateUser(t)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})
	for _, to := range recipients {
		wg.Add(1)
		go func(to *model.User) {
			defer wg.Done()
			<-start
			_, err := repo.AddTransfer(ctx, model.NewTransfer{GoodJobID: job.ID, FromUserID: alice.ID, ToUserID: to.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(to)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		assert.ErrorIs(t, err, model.ErrNotOwner)
	}
	assert.Equal(t, 1, tdb.Count("transfers"))

	got, err := repo.GetByID(ctx, job.ID, false)
	require.NoError(t, err)
	last, err := repo.GetLastTransfer(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, got.OwnedBy(last.ToUserID))
	assert.Equal(t, 0, last.BalanceAfterFrom)
	assert.Equal(t, 1, last.BalanceAfterTo)
}

func TestGoodJobRepository_AddTransfer_ChainKeepsCountsConsistent(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	users := []*model.User{e.f.CreateUser(t), e.f.CreateUser(t), e.f.CreateUser(t)}
	job := e.f.CreateGoodJob(t, users[0])
	e.f.CreateGoodJobs(t, users[1], 2)

	for i := 0; i < 6; i++ {
		from, to := users[i%3], users[(i+1)%3]
		tr := e.transfer(t, job.ID, from, to, time.Now().UTC())

		fromCount, _ := e.repo.CountByOwner(e.ctx, from.ID)
		toCount, _ := e.repo.CountByOwner(e.ctx, to.ID)
		assert.Equal(t, fromCount, tr.BalanceAfterFrom)
		assert.Equal(t, toCount, tr.BalanceAfterTo)
	}

	last, err := e.repo.GetLastTransfer(e.ctx, job.ID)
	require.NoError(t, err)
	got, _ := e.repo.GetByID(e.ctx, job.ID, false)
	assert.True(t, got.OwnedBy(last.ToUserID))
}

// ============================================================================
// GetReceivedBeforeGoodJob
// ============================================================================

func TestGoodJobRepository_ReceivedBefore_NoneOwned(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice := e.f.CreateUser(t)

	got, err := e.repo.GetReceivedBeforeGoodJob(e.ctx, alice.ID)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGoodJobRepository_ReceivedBefore_PrefersNeverReceived(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	u, v := e.f.CreateUser(t), e.f.CreateUser(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	g1 := e.f.CreateGoodJob(t, v)
	g2 := e.f.CreateGoodJob(t, u) // minted to u, never received
	e.transfer(t, g1.ID, v, u, base)

	got, err := e.repo.GetReceivedBeforeGoodJob(e.ctx, u.ID)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g2.ID, got.ID)
}

func TestGoodJobRepository_ReceivedBefore_NeverReceivedLowestID(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	u := e.f.CreateUser(t)
	jobs := e.f.CreateGoodJobs(t, u, 3)

	got, err := e.repo.GetReceivedBeforeGoodJob(e.ctx, u.ID)

	require.NoError(t, err)
	assert.Equal(t, jobs[0].ID, got.ID)
}

func TestGoodJobRepository_ReceivedBefore_OldestRepeatReceipt(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	u, v := e.f.CreateUser(t), e.f.CreateUser(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	gA := e.f.CreateGoodJob(t, v)
	gB := e.f.CreateGoodJob(t, v)
	// gA first reaches u at day 5, gB at day 1; both come back once more.
	e.transfer(t, gA.ID, v, u, base.AddDate(0, 0, 5))
	e.transfer(t, gA.ID, u, v, base.AddDate(0, 0, 6))
	e.transfer(t, gA.ID, v, u, base.AddDate(0, 0, 7))
	e.transfer(t, gB.ID, v, u, base.AddDate(0, 0, 1))
	e.transfer(t, gB.ID, u, v, base.AddDate(0, 0, 2))
	e.transfer(t, gB.ID, v, u, base.AddDate(0, 0, 3))

	got, err := e.repo.GetReceivedBeforeGoodJob(e.ctx, u.ID)

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, gB.ID, got.ID)
}

func TestGoodJobRepository_ReceivedBefore_OnlySingleReceipts(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	u, v := e.f.CreateUser(t), e.f.CreateUser(t)
	g := e.f.CreateGoodJob(t, v)
	e.transfer(t, g.ID, v, u, time.Now().UTC())

	got, err := e.repo.GetReceivedBeforeGoodJob(e.ctx, u.ID)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPickReceivedBefore(t *testing.T) {
	t.Parallel()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	jobs := []*model.GoodJob{{ID: 1}, {ID: 2}, {ID: 3}}

	tests := []struct {
		name     string
		receipts []receipt
		want     int64
	}{
		{"all never received", nil, 1},
		{"first received once", []receipt{{1, base}}, 2},
		{"repeat ties on date", []receipt{
			{1, base}, {1, base.Add(time.Hour)},
			{2, base}, {2, base.Add(time.Minute)},
			{3, base},
		}, 1},
		{"repeat uses earliest receipt", []receipt{
			{1, base.Add(2 * time.Hour)}, {1, base.Add(3 * time.Hour)},
			{2, base.Add(4 * time.Hour)}, {2, base.Add(time.Hour)},
			{3, base},
		}, 2},
		{"no candidate", []receipt{{1, base}, {2, base}, {3, base}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickReceivedBefore(jobs, tt.receipts)
			if tt.want == 0 {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

// ============================================================================
// Delete / LastTransfer / history
// ============================================================================

func TestGoodJobRepository_Delete_RemovesTransfers(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	job := e.f.CreateGoodJob(t, alice)
	keep := e.f.CreateGoodJob(t, alice)
	e.transfer(t, job.ID, alice, bob, time.Now().UTC())
	e.transfer(t, keep.ID, alice, bob, time.Now().UTC())

	deleted, err := e.repo.Delete(e.ctx, job.ID)

	require.NoError(t, err)
	assert.Equal(t, job.ID, deleted.ID)
	assert.Equal(t, 0, e.f.TransferCount(t, job.ID))
	assert.Equal(t, 1, e.f.TransferCount(t, keep.ID))
	_, err = e.repo.GetByID(e.ctx, job.ID, false)
	assert.ErrorIs(t, err, model.ErrGoodJobNotFound)
}

func TestGoodJobRepository_Delete_NotFound(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)

	_, err := e.repo.Delete(e.ctx, 77)
	assert.ErrorIs(t, err, model.ErrGoodJobNotFound)
}

func TestGoodJobRepository_GetLastTransfer(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	job := e.f.CreateGoodJob(t, alice)

	none, err := e.repo.GetLastTransfer(e.ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	e.transfer(t, job.ID, alice, bob, base)
	second := e.transfer(t, job.ID, bob, alice, base.Add(time.Minute))

	last, err := e.repo.GetLastTransfer(e.ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, last.ID)

	_, err = e.repo.GetLastTransfer(e.ctx, 999)
	assert.ErrorIs(t, err, model.ErrGoodJobNotFound)
}

func TestGoodJobRepository_TransfersSentAndReceived(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	jobs := e.f.CreateGoodJobs(t, alice, 2)
	e.transfer(t, jobs[0].ID, alice, bob, time.Now().UTC())
	e.transfer(t, jobs[1].ID, alice, bob, time.Now().UTC())

	sent, err := e.repo.GetTransfersSent(e.ctx, alice.ID)
	require.NoError(t, err)
	received, err := e.repo.GetTransfersReceived(e.ctx, bob.ID)
	require.NoError(t, err)

	assert.Len(t, sent, 2)
	assert.Len(t, received, 2)
	assert.Equal(t, 0, sent[0].BalanceAfterFrom)
	assert.Equal(t, 2, received[0].BalanceAfterTo)
}

// ============================================================================
// AuditOwnership
// ============================================================================

func TestGoodJobRepository_AuditOwnership_Clean(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	job := e.f.CreateGoodJob(t, alice)
	e.transfer(t, job.ID, alice, bob, time.Now().UTC())

	audit, err := e.repo.AuditOwnership(e.ctx)

	require.NoError(t, err)
	assert.True(t, audit.Clean())
	assert.Equal(t, 1, audit.GoodJobs)
	assert.Equal(t, 1, audit.Transfers)
}

func TestGoodJobRepository_AuditOwnership_FindsViolations(t *testing.T) {
	t.Parallel()
	e := setupLedger(t)
	alice, bob := e.f.CreateUser(t), e.f.CreateUser(t)
	admin := e.f.CreateAdmin(t)
	adminJob := e.f.CreateGoodJob(t, alice)
	drifted := e.f.CreateGoodJob(t, alice)
	e.transfer(t, drifted.ID, alice, bob, time.Now().UTC())

	e.f.ForceOwner(t, adminJob.ID, admin.ID)
	e.f.ForceOwner(t, drifted.ID, alice.ID)

	audit, err := e.repo.AuditOwnership(e.ctx)

	require.NoError(t, err)
	assert.Equal(t, []int64{adminJob.ID}, audit.AdminOwned)
	assert.Equal(t, []int64{drifted.ID}, audit.OwnerMismatches)
}
