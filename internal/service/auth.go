package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/pkg/jwt"
)

// UserRepository defines the interface for user storage
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByName(ctx context.Context, name string) (*model.User, error)
	GetAll(ctx context.Context) ([]*model.User, error)
	Register(ctx context.Context, user *model.User) error
	Update(ctx context.Context, id int64, upd model.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id int64) error
}

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID  int64
	Name    string
	IsAdmin bool
}

// ActorFromClaims converts verified token claims into an actor. Nil claims
// yield a nil actor.
func ActorFromClaims(c *jwt.Claims) *Actor {
	if c == nil {
		return nil
	}
	return &Actor{UserID: c.UserID, Name: c.Name, IsAdmin: c.Admin}
}

func requireActor(actor *Actor) error {
	if actor == nil {
		return ErrAuthRequired
	}
	return nil
}

func requireAdmin(actor *Actor) error {
	if actor == nil {
		return ErrAuthRequired
	}
	if !actor.IsAdmin {
		return ErrAdminRequired
	}
	return nil
}

// AuthService handles registration, login and the current-user view
type AuthService struct {
	userRepo     UserRepository
	goodJobRepo  GoodJobRepository
	tokenService *TokenService
	passwords    *Passwords
}

// AuthServiceConfig holds configuration for the auth service
type AuthServiceConfig struct {
	UserRepo     UserRepository
	GoodJobRepo  GoodJobRepository
	TokenService *TokenService
	Passwords    *Passwords
}

// NewAuthService creates a new auth service
func NewAuthService(cfg AuthServiceConfig) *AuthService {
	passwords := cfg.Passwords
	if passwords == nil {
		passwords, _ = NewPasswords(HasherSHA256, 0)
	}
	return &AuthService{
		userRepo:     cfg.UserRepo,
		goodJobRepo:  cfg.GoodJobRepo,
		tokenService: cfg.TokenService,
		passwords:    passwords,
	}
}

// Credentials is a name and password pair
type Credentials struct {
	Name     string
	Password string
}

// AuthResult is a user together with a freshly issued token
type AuthResult struct {
	User  *model.User
	Token string
}

// Register creates a user account. The first account ever registered
// becomes an administrator; every later one is a regular user.
func (s *AuthService) Register(ctx context.Context, req Credentials) (*AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	if err := validateCredentials(name, req.Password); err != nil {
		return nil, err
	}

	return s.create(ctx, name, req.Password, func(ctx context.Context, user *model.User) error {
		return s.userRepo.Register(ctx, user)
	})
}

// CreateUser creates an account on behalf of an administrator
func (s *AuthService) CreateUser(ctx context.Context, actor *Actor, req Credentials, isAdmin bool) (*AuthResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := validateCredentials(name, req.Password); err != nil {
		return nil, err
	}
	return s.create(ctx, name, req.Password, func(ctx context.Context, user *model.User) error {
		user.IsAdmin = isAdmin
		return s.userRepo.Create(ctx, user)
	})
}

func (s *AuthService) create(ctx context.Context, name, password string, store func(context.Context, *model.User) error) (*AuthResult, error) {
	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Name: name, Hash: hash}
	if err := store(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokenService.Issue(user)
	if err != nil {
		return nil, err
	}
	if user.IsAdmin {
		slog.Info("administrator account created", "user_id", user.ID, "name", user.Name)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login checks credentials and issues a token. Unknown names and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req Credentials) (*AuthResult, error) {
	user, err := s.userRepo.GetByName(ctx, strings.TrimSpace(req.Name))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.passwords.Verify(req.Password, user.Hash) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// MeOptions selects the optional parts of the current-user view
type MeOptions struct {
	IncludeGoodJobs     bool
	IncludeTransactions bool
}

// SentTransfer is an outgoing transfer seen from the sender
type SentTransfer struct {
	ID           int64          `json:"id"`
	Date         string         `json:"date"`
	ToUser       *model.UserRef `json:"toUser"`
	GoodJobID    int64          `json:"goodJobId"`
	BalanceAfter int            `json:"balanceAfter"`
}

// ReceivedTransfer is an incoming transfer seen from the recipient
type ReceivedTransfer struct {
	ID           int64          `json:"id"`
	Date         string         `json:"date"`
	FromUser     *model.UserRef `json:"fromUser"`
	GoodJobID    int64          `json:"goodJobId"`
	BalanceAfter int            `json:"balanceAfter"`
}

// Transactions groups a user's transfer history by direction
type Transactions struct {
	Sent     []SentTransfer     `json:"sent"`
	Received []ReceivedTransfer `json:"received"`
}

// MeResult is the current-user view
type MeResult struct {
	User          *model.User      `json:"user"`
	GoodJobsCount int              `json:"goodJobsCount"`
	GoodJobs      []*model.GoodJob `json:"goodJobs,omitempty"`
	Transactions  *Transactions    `json:"transactions,omitempty"`
}

// Me returns the caller's account with its balance and, on request, its
// GoodJobs and transfer history.
func (s *AuthService) Me(ctx context.Context, actor *Actor, opts MeOptions) (*MeResult, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	count, err := s.goodJobRepo.CountByOwner(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	result := &MeResult{User: user, GoodJobsCount: count}

	if opts.IncludeGoodJobs {
		jobs, err := s.goodJobRepo.GetByOwner(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		result.GoodJobs = jobs
	}

	if opts.IncludeTransactions {
		sent, err := s.goodJobRepo.GetTransfersSent(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		received, err := s.goodJobRepo.GetTransfersReceived(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		result.Transactions = buildTransactions(sent, received)
	}

	return result, nil
}

func buildTransactions(sent, received []model.Transfer) *Transactions {
	tx := &Transactions{
		Sent:     make([]SentTransfer, 0, len(sent)),
		Received: make([]ReceivedTransfer, 0, len(received)),
	}
	for _, t := range sent {
		tx.Sent = append(tx.Sent, SentTransfer{
			ID:           t.ID,
			Date:         model.FormatTimestamp(t.Date),
			ToUser:       t.ToUser,
			GoodJobID:    t.GoodJobID,
			BalanceAfter: t.BalanceAfterFrom,
		})
	}
	for _, t := range received {
		tx.Received = append(tx.Received, ReceivedTransfer{
			ID:           t.ID,
			Date:         model.FormatTimestamp(t.Date),
			FromUser:     t.FromUser,
			GoodJobID:    t.GoodJobID,
			BalanceAfter: t.BalanceAfterTo,
		})
	}
	return tx
}
