package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/forgo/goodjobs/internal/model"
)

// GoodJobRepository defines the interface for ledger storage
type GoodJobRepository interface {
	Create(ctx context.Context, in model.NewGoodJob) (*model.GoodJob, error)
	GetByID(ctx context.Context, id int64, includeTransfers bool) (*model.GoodJob, error)
	GetAll(ctx context.Context, includeTransfers bool) ([]*model.GoodJob, error)
	GetByOwner(ctx context.Context, ownerID int64) ([]*model.GoodJob, error)
	CountByOwner(ctx context.Context, ownerID int64) (int, error)
	AddTransfer(ctx context.Context, in model.NewTransfer) (*model.Transfer, error)
	GetReceivedBeforeGoodJob(ctx context.Context, ownerID int64) (*model.GoodJob, error)
	Delete(ctx context.Context, id int64) (*model.GoodJob, error)
	GetLastTransfer(ctx context.Context, goodJobID int64) (*model.Transfer, error)
	GetTransfersSent(ctx context.Context, userID int64) ([]model.Transfer, error)
	GetTransfersReceived(ctx context.Context, userID int64) ([]model.Transfer, error)
}

// LedgerRecorder receives ledger events for instrumentation
type LedgerRecorder interface {
	GoodJobCreated()
	GoodJobDeleted()
	TransferCompleted(d time.Duration)
	TransferRejected(reason string)
}

type noopRecorder struct{}

func (noopRecorder) GoodJobCreated()                 {}
func (noopRecorder) GoodJobDeleted()                 {}
func (noopRecorder) TransferCompleted(time.Duration) {}
func (noopRecorder) TransferRejected(string)         {}

// TransferNotifier is told about every completed transfer
type TransferNotifier interface {
	PublishTransfer(t *model.Transfer)
}

// LedgerService mints, moves and retires GoodJobs
type LedgerService struct {
	goodJobRepo GoodJobRepository
	userRepo    UserRepository
	recorder    LedgerRecorder
	notifier    TransferNotifier
}

// LedgerServiceConfig holds configuration for the ledger service
type LedgerServiceConfig struct {
	GoodJobRepo GoodJobRepository
	UserRepo    UserRepository
	Recorder    LedgerRecorder   // optional
	Notifier    TransferNotifier // optional
}

// NewLedgerService creates a new ledger service
func NewLedgerService(cfg LedgerServiceConfig) *LedgerService {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &LedgerService{
		goodJobRepo: cfg.GoodJobRepo,
		userRepo:    cfg.UserRepo,
		recorder:    recorder,
		notifier:    cfg.Notifier,
	}
}

// CreateGoodJobRequest holds the inputs for minting a GoodJob
type CreateGoodJobRequest struct {
	GeneratedDate  *time.Time
	InitialOwnerID *int64
}

// CreateGoodJob mints a GoodJob. Admin only.
func (s *LedgerService) CreateGoodJob(ctx context.Context, actor *Actor, req CreateGoodJobRequest) (*model.GoodJob, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	job, err := s.goodJobRepo.Create(ctx, model.NewGoodJob{
		GeneratedDate:  req.GeneratedDate,
		InitialOwnerID: req.InitialOwnerID,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.GoodJobCreated()
	return job, nil
}

// TransferRequest moves a GoodJob. GoodJobID and FromUserID are optional.
// The sender defaults to the caller. Without a GoodJobID the caller's
// never-received GoodJob with the smallest id is sent; failing that, the one
// received twice or more with the oldest first receipt; otherwise none.
type TransferRequest struct {
	GoodJobID  *int64
	FromUserID *int64
	ToUserID   int64
}

// TransferResult is a completed transfer with the resolved new owner
type TransferResult struct {
	Transfer     *model.Transfer `json:"transfer"`
	CurrentOwner *model.UserRef  `json:"currentOwner"`
}

// Transfer moves a GoodJob owned by the caller to another user
func (s *LedgerService) Transfer(ctx context.Context, actor *Actor, req TransferRequest) (*TransferResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if req.FromUserID != nil && *req.FromUserID != actor.UserID {
		s.recorder.TransferRejected("forbidden")
		return nil, ErrNotYourGoodJob
	}
	if req.ToUserID == 0 {
		return nil, ErrRecipientRequired
	}

	var goodJobID int64
	if req.GoodJobID != nil {
		goodJobID = *req.GoodJobID
	} else {
		job, err := s.goodJobRepo.GetReceivedBeforeGoodJob(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			s.recorder.TransferRejected("empty_balance")
			return nil, ErrNoTransferableGoodJob
		}
		goodJobID = job.ID
	}

	start := time.Now()
	transfer, err := s.goodJobRepo.AddTransfer(ctx, model.NewTransfer{
		GoodJobID:  goodJobID,
		FromUserID: actor.UserID,
		ToUserID:   req.ToUserID,
	})
	if err != nil {
		s.recorder.TransferRejected(rejectionReason(err))
		return nil, err
	}
	s.recorder.TransferCompleted(time.Since(start))
	if s.notifier != nil {
		s.notifier.PublishTransfer(transfer)
	}

	owner := transfer.ToUser
	if owner == nil {
		recipient, err := s.userRepo.GetByID(ctx, transfer.ToUserID)
		if err != nil {
			return nil, err
		}
		owner = recipient.Ref()
	}

	slog.Debug("goodjob transferred",
		"good_job_id", transfer.GoodJobID,
		"from_user_id", transfer.FromUserID,
		"to_user_id", transfer.ToUserID,
		"balance_after_from", transfer.BalanceAfterFrom,
		"balance_after_to", transfer.BalanceAfterTo,
	)
	return &TransferResult{Transfer: transfer, CurrentOwner: owner}, nil
}

// rejectionReason labels a failed transfer for metrics
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, model.ErrGoodJobNotFound):
		return "goodjob_not_found"
	case errors.Is(err, model.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, model.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, model.ErrAdminCannotReceive):
		return "admin_recipient"
	case errors.Is(err, model.ErrSelfTransfer):
		return "self_transfer"
	default:
		return "error"
	}
}

// GetGoodJob returns one GoodJob, optionally with its transfer history
func (s *LedgerService) GetGoodJob(ctx context.Context, id int64, includeTransfers bool) (*model.GoodJob, error) {
	return s.goodJobRepo.GetByID(ctx, id, includeTransfers)
}

// ListGoodJobs returns every GoodJob
func (s *LedgerService) ListGoodJobs(ctx context.Context, includeTransfers bool) ([]*model.GoodJob, error) {
	return s.goodJobRepo.GetAll(ctx, includeTransfers)
}

// ListByOwner returns the GoodJobs held by a user. Unknown users are an error
// rather than an empty list.
func (s *LedgerService) ListByOwner(ctx context.Context, ownerID int64) ([]*model.GoodJob, error) {
	if _, err := s.userRepo.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}
	return s.goodJobRepo.GetByOwner(ctx, ownerID)
}

// CountByOwner returns a user's balance
func (s *LedgerService) CountByOwner(ctx context.Context, ownerID int64) (int, error) {
	if _, err := s.userRepo.GetByID(ctx, ownerID); err != nil {
		return 0, err
	}
	return s.goodJobRepo.CountByOwner(ctx, ownerID)
}

// LastTransfer returns the newest transfer of a GoodJob
func (s *LedgerService) LastTransfer(ctx context.Context, goodJobID int64) (*model.Transfer, error) {
	t, err := s.goodJobRepo.GetLastTransfer(ctx, goodJobID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, model.ErrTransferNotFound
	}
	return t, nil
}

// DeleteGoodJob removes a GoodJob and its history. Admin only.
func (s *LedgerService) DeleteGoodJob(ctx context.Context, actor *Actor, id int64) (*model.GoodJob, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	job, err := s.goodJobRepo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.recorder.GoodJobDeleted()
	slog.Info("goodjob deleted", "good_job_id", id, "actor_id", actor.UserID)
	return job, nil
}
