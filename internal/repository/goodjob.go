package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/forgo/goodjobs/internal/database"
	"github.com/forgo/goodjobs/internal/model"
)

const goodJobSelect = `
	SELECT g.id, g.generated_date, g.current_owner_id, g.last_transfer_date, u.name AS owner_name
	FROM good_jobs g
	LEFT JOIN users u ON u.id = g.current_owner_id`

const transferSelect = `
	SELECT t.id, t.date, t.from_user_id, t.to_user_id, t.good_job_id,
		t.balance_after_from, t.balance_after_to,
		fu.name AS from_name, tu.name AS to_name
	FROM transfers t
	JOIN users fu ON fu.id = t.from_user_id
	JOIN users tu ON tu.id = t.to_user_id`

type goodJobRow struct {
	model.GoodJob
	OwnerName sql.NullString `db:"owner_name"`
}

func (row *goodJobRow) toModel() *model.GoodJob {
	g := row.GoodJob
	if g.CurrentOwnerID != nil && row.OwnerName.Valid {
		g.CurrentOwner = &model.UserRef{ID: *g.CurrentOwnerID, Name: row.OwnerName.String}
	}
	return &g
}

type transferRow struct {
	model.Transfer
	FromName string `db:"from_name"`
	ToName   string `db:"to_name"`
}

func (row *transferRow) toModel() model.Transfer {
	t := row.Transfer
	t.FromUser = &model.UserRef{ID: t.FromUserID, Name: row.FromName}
	t.ToUser = &model.UserRef{ID: t.ToUserID, Name: row.ToName}
	return t
}

// GoodJobRepository is the token ledger. It owns the ownership invariants:
// admins never hold GoodJobs, every ownership change is recorded as a
// Transfer, and both happen in the same transaction.
type GoodJobRepository struct {
	db    database.Database
	clock func() time.Time
}

// NewGoodJobRepository creates a new GoodJob repository
func NewGoodJobRepository(db database.Database) *GoodJobRepository {
	return &GoodJobRepository{db: db, clock: utcNow}
}

// Create mints a GoodJob. With an initial owner the owner must exist and must
// not be an admin; lastTransferDate is set but no Transfer row is written.
func (r *GoodJobRepository) Create(ctx context.Context, in model.NewGoodJob) (*model.GoodJob, error) {
	now := r.clock()
	generated := now
	if in.GeneratedDate != nil {
		generated = in.GeneratedDate.UTC()
	}

	var id int64
	err := r.db.WithTx(ctx, func(q database.Querier) error {
		var lastTransfer *time.Time
		if in.InitialOwnerID != nil {
			owner, err := getUser(ctx, q, *in.InitialOwnerID)
			if err != nil {
				return err
			}
			if !owner.CanHoldGoodJobs() {
				return model.ErrAdminCannotOwn
			}
			lastTransfer = &now
		}

		var err error
		id, err = insert(ctx, q,
			`INSERT INTO good_jobs (generated_date, current_owner_id, last_transfer_date) VALUES (?, ?, ?) RETURNING id`,
			generated, nullInt64(in.InitialOwnerID), nullTime(lastTransfer))
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id, false)
}

// GetByID returns a GoodJob with its owner resolved. With includeTransfers
// its history is attached, newest first.
func (r *GoodJobRepository) GetByID(ctx context.Context, id int64, includeTransfers bool) (*model.GoodJob, error) {
	q := r.db.Conn()
	var row goodJobRow
	if err := get(ctx, q, &row, model.ErrGoodJobNotFound, goodJobSelect+` WHERE g.id = ?`, id); err != nil {
		return nil, err
	}
	g := row.toModel()

	if includeTransfers {
		transfers, err := r.transfersWhere(ctx, q, `t.good_job_id = ?`, id)
		if err != nil {
			return nil, err
		}
		g.Transfers = transfers
	}
	return g, nil
}

// GetAll lists every GoodJob ordered by ID
func (r *GoodJobRepository) GetAll(ctx context.Context, includeTransfers bool) ([]*model.GoodJob, error) {
	q := r.db.Conn()
	jobs, err := r.goodJobsWhere(ctx, q, `1 = 1`)
	if err != nil {
		return nil, err
	}
	if !includeTransfers || len(jobs) == 0 {
		return jobs, nil
	}

	transfers, err := r.transfersWhere(ctx, q, `1 = 1`)
	if err != nil {
		return nil, err
	}
	byJob := make(map[int64][]model.Transfer, len(jobs))
	for _, t := range transfers {
		byJob[t.GoodJobID] = append(byJob[t.GoodJobID], t)
	}
	for _, g := range jobs {
		g.Transfers = byJob[g.ID]
	}
	return jobs, nil
}

// GetByOwner lists the GoodJobs currently owned by ownerID, ordered by ID
func (r *GoodJobRepository) GetByOwner(ctx context.Context, ownerID int64) ([]*model.GoodJob, error) {
	return r.goodJobsWhere(ctx, r.db.Conn(), `g.current_owner_id = ?`, ownerID)
}

// CountByOwner returns the number of GoodJobs currently owned by ownerID
func (r *GoodJobRepository) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	return countOwned(ctx, r.db.Conn(), ownerID)
}

// AddTransfer moves a GoodJob from one user to another.
//
// Preconditions are checked in order and the first failure is returned:
// the GoodJob exists, fromUserID is its current owner, the recipient exists
// and is not an admin, and the recipient is not the sender. The owner update
// and the Transfer insert share one transaction; the update only matches
// while fromUserID still owns the GoodJob, so of two concurrent transfers of
// the same GoodJob at most one commits.
func (r *GoodJobRepository) AddTransfer(ctx context.Context, in model.NewTransfer) (*model.Transfer, error) {
	date := r.clock()
	if in.Date != nil {
		date = in.Date.UTC()
	}

	var transfer model.Transfer
	err := r.db.WithTx(ctx, func(q database.Querier) error {
		var job model.GoodJob
		if err := get(ctx, q, &job, model.ErrGoodJobNotFound,
			`SELECT id, generated_date, current_owner_id, last_transfer_date FROM good_jobs WHERE id = ?`, in.GoodJobID); err != nil {
			return err
		}
		if !job.OwnedBy(in.FromUserID) {
			return model.ErrNotOwner
		}

		to, err := getUser(ctx, q, in.ToUserID)
		if err != nil {
			return err
		}
		if !to.CanHoldGoodJobs() {
			return model.ErrAdminCannotReceive
		}
		if to.ID == in.FromUserID {
			return model.ErrSelfTransfer
		}
		from, err := getUser(ctx, q, in.FromUserID)
		if err != nil {
			return err
		}

		fromCount, err := countOwned(ctx, q, from.ID)
		if err != nil {
			return err
		}
		toCount, err := countOwned(ctx, q, to.ID)
		if err != nil {
			return err
		}

		n, err := exec(ctx, q,
			`UPDATE good_jobs SET current_owner_id = ?, last_transfer_date = ? WHERE id = ? AND current_owner_id = ?`,
			to.ID, date, job.ID, from.ID)
		if err != nil {
			return err
		}
		if n != 1 {
			return model.ErrNotOwner
		}

		transfer = model.Transfer{
			Date:             date,
			FromUserID:       from.ID,
			ToUserID:         to.ID,
			GoodJobID:        job.ID,
			BalanceAfterFrom: fromCount - 1,
			BalanceAfterTo:   toCount + 1,
			FromUser:         from.Ref(),
			ToUser:           to.Ref(),
		}
		transfer.ID, err = insert(ctx, q,
			`INSERT INTO transfers (date, from_user_id, to_user_id, good_job_id, balance_after_from, balance_after_to)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id`,
			transfer.Date, transfer.FromUserID, transfer.ToUserID, transfer.GoodJobID,
			transfer.BalanceAfterFrom, transfer.BalanceAfterTo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// GetReceivedBeforeGoodJob picks which of ownerID's GoodJobs to send when
// the caller did not name one. It returns nil when there is no candidate.
func (r *GoodJobRepository) GetReceivedBeforeGoodJob(ctx context.Context, ownerID int64) (*model.GoodJob, error) {
	q := r.db.Conn()
	owned, err := r.goodJobsWhere(ctx, q, `g.current_owner_id = ?`, ownerID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return nil, nil
	}

	var receipts []receipt
	if err := list(ctx, q, &receipts, `
		SELECT t.good_job_id, t.date
		FROM transfers t
		JOIN good_jobs g ON g.id = t.good_job_id
		WHERE g.current_owner_id = ? AND t.to_user_id = ?`, ownerID, ownerID); err != nil {
		return nil, err
	}
	return pickReceivedBefore(owned, receipts), nil
}

type receipt struct {
	GoodJobID int64     `db:"good_job_id"`
	Date      time.Time `db:"date"`
}

// pickReceivedBefore applies the selection rule to GoodJobs sorted by ID:
// prefer one never received by its owner (lowest ID), otherwise one received
// at least twice whose first receipt is oldest (lowest ID on ties).
func pickReceivedBefore(owned []*model.GoodJob, receipts []receipt) *model.GoodJob {
	type stat struct {
		count    int
		earliest time.Time
	}
	stats := make(map[int64]*stat, len(owned))
	for _, rc := range receipts {
		s, ok := stats[rc.GoodJobID]
		if !ok {
			stats[rc.GoodJobID] = &stat{count: 1, earliest: rc.Date}
			continue
		}
		s.count++
		if rc.Date.Before(s.earliest) {
			s.earliest = rc.Date
		}
	}

	for _, g := range owned {
		if stats[g.ID] == nil {
			return g
		}
	}

	var best *model.GoodJob
	var bestDate time.Time
	for _, g := range owned {
		s := stats[g.ID]
		if s.count < 2 {
			continue
		}
		if best == nil || s.earliest.Before(bestDate) {
			best, bestDate = g, s.earliest
		}
	}
	return best
}

// Delete removes a GoodJob and its transfers in one transaction
func (r *GoodJobRepository) Delete(ctx context.Context, id int64) (*model.GoodJob, error) {
	job, err := r.GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	err = r.db.WithTx(ctx, func(q database.Querier) error {
		if _, err := exec(ctx, q, `DELETE FROM transfers WHERE good_job_id = ?`, id); err != nil {
			return err
		}
		n, err := exec(ctx, q, `DELETE FROM good_jobs WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return model.ErrGoodJobNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

// GetLastTransfer returns the newest transfer of a GoodJob, or nil if it was
// never transferred
func (r *GoodJobRepository) GetLastTransfer(ctx context.Context, goodJobID int64) (*model.Transfer, error) {
	q := r.db.Conn()
	var exists int
	if err := get(ctx, q, &exists, nil, `SELECT COUNT(*) FROM good_jobs WHERE id = ?`, goodJobID); err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrGoodJobNotFound
	}

	transfers, err := r.transfersWhere(ctx, q, `t.good_job_id = ?`, goodJobID)
	if err != nil {
		return nil, err
	}
	if len(transfers) == 0 {
		return nil, nil
	}
	return &transfers[0], nil
}

// GetTransfersSent lists transfers sent by userID, newest first
func (r *GoodJobRepository) GetTransfersSent(ctx context.Context, userID int64) ([]model.Transfer, error) {
	return r.transfersWhere(ctx, r.db.Conn(), `t.from_user_id = ?`, userID)
}

// GetTransfersReceived lists transfers received by userID, newest first
func (r *GoodJobRepository) GetTransfersReceived(ctx context.Context, userID int64) ([]model.Transfer, error) {
	return r.transfersWhere(ctx, r.db.Conn(), `t.to_user_id = ?`, userID)
}

// AuditOwnership scans for GoodJobs held by admins and GoodJobs whose newest
// transfer does not point at the current owner. It never writes.
func (r *GoodJobRepository) AuditOwnership(ctx context.Context) (*model.OwnershipAudit, error) {
	q := r.db.Conn()
	audit := &model.OwnershipAudit{
		AdminOwned:      []int64{},
		OwnerMismatches: []int64{},
		CheckedAt:       r.clock(),
	}

	if err := get(ctx, q, &audit.GoodJobs, nil, `SELECT COUNT(*) FROM good_jobs`); err != nil {
		return nil, err
	}
	if err := get(ctx, q, &audit.Transfers, nil, `SELECT COUNT(*) FROM transfers`); err != nil {
		return nil, err
	}
	if err := list(ctx, q, &audit.AdminOwned, `
		SELECT g.id FROM good_jobs g
		JOIN users u ON u.id = g.current_owner_id
		WHERE u.is_admin = ?
		ORDER BY g.id`, true); err != nil {
		return nil, err
	}
	if err := list(ctx, q, &audit.OwnerMismatches, `
		SELECT g.id FROM good_jobs g
		JOIN transfers t ON t.good_job_id = g.id
		WHERE t.id = (SELECT MAX(t2.id) FROM transfers t2 WHERE t2.good_job_id = g.id)
			AND (g.current_owner_id IS NULL OR g.current_owner_id <> t.to_user_id)
		ORDER BY g.id`); err != nil {
		return nil, err
	}
	return audit, nil
}

func (r *GoodJobRepository) goodJobsWhere(ctx context.Context, q database.Querier, where string, args ...interface{}) ([]*model.GoodJob, error) {
	var rows []goodJobRow
	if err := list(ctx, q, &rows, goodJobSelect+` WHERE `+where+` ORDER BY g.id`, args...); err != nil {
		return nil, err
	}
	jobs := make([]*model.GoodJob, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toModel())
	}
	return jobs, nil
}

func (r *GoodJobRepository) transfersWhere(ctx context.Context, q database.Querier, where string, args ...interface{}) ([]model.Transfer, error) {
	var rows []transferRow
	if err := list(ctx, q, &rows, transferSelect+` WHERE `+where+` ORDER BY t.date DESC, t.id DESC`, args...); err != nil {
		return nil, err
	}
	transfers := make([]model.Transfer, 0, len(rows))
	for i := range rows {
		transfers = append(transfers, rows[i].toModel())
	}
	return transfers, nil
}
