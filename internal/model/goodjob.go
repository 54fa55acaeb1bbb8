package model

import "time"

// GoodJob is a discrete token with at most one current owner
type GoodJob struct {
	ID               int64      `json:"id" db:"id"`
	GeneratedDate    time.Time  `json:"generatedDate" db:"generated_date"`
	CurrentOwnerID   *int64     `json:"currentOwnerId" db:"current_owner_id"`
	LastTransferDate *time.Time `json:"lastTransferDate" db:"last_transfer_date"`

	// Resolved on read
	CurrentOwner *UserRef   `json:"currentOwner" db:"-"`
	Transfers    []Transfer `json:"transfers,omitempty" db:"-"`
}

// OwnedBy reports whether userID is the current owner
func (g *GoodJob) OwnedBy(userID int64) bool {
	return g.CurrentOwnerID != nil && *g.CurrentOwnerID == userID
}

// Transfer is an immutable ledger entry recording one ownership change
type Transfer struct {
	ID               int64     `json:"id" db:"id"`
	Date             time.Time `json:"date" db:"date"`
	FromUserID       int64     `json:"fromUserId" db:"from_user_id"`
	ToUserID         int64     `json:"toUserId" db:"to_user_id"`
	GoodJobID        int64     `json:"goodJobId" db:"good_job_id"`
	BalanceAfterFrom int       `json:"balanceAfterFrom" db:"balance_after_from"`
	BalanceAfterTo   int       `json:"balanceAfterTo" db:"balance_after_to"`

	FromUser *UserRef `json:"fromUser,omitempty" db:"-"`
	ToUser   *UserRef `json:"toUser,omitempty" db:"-"`
}

// NewGoodJob holds the inputs for minting a GoodJob
type NewGoodJob struct {
	GeneratedDate  *time.Time
	InitialOwnerID *int64
}

// NewTransfer holds the inputs for moving a GoodJob between users
type NewTransfer struct {
	GoodJobID  int64
	FromUserID int64
	ToUserID   int64
	Date       *time.Time
}

// OwnershipAudit summarizes ledger invariant violations found by a scan
type OwnershipAudit struct {
	GoodJobs        int       `json:"goodJobs"`
	Transfers       int       `json:"transfers"`
	AdminOwned      []int64   `json:"adminOwned"`
	OwnerMismatches []int64   `json:"ownerMismatches"`
	CheckedAt       time.Time `json:"checkedAt"`
}

// Clean reports whether the audit found no violations
func (a *OwnershipAudit) Clean() bool {
	return len(a.AdminOwned) == 0 && len(a.OwnerMismatches) == 0
}
