package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/forgo/goodjobs/internal/model"
)

// UserService exposes the user directory
type UserService struct {
	userRepo  UserRepository
	passwords *Passwords
}

// UserServiceConfig holds configuration for the user service
type UserServiceConfig struct {
	UserRepo  UserRepository
	Passwords *Passwords
}

// NewUserService creates a new user service
func NewUserService(cfg UserServiceConfig) *UserService {
	passwords := cfg.Passwords
	if passwords == nil {
		passwords, _ = NewPasswords(HasherSHA256, 0)
	}
	return &UserService{userRepo: cfg.UserRepo, passwords: passwords}
}

// List returns every user ordered by ID
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.GetAll(ctx)
}

// Get returns a user by ID
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetByName returns a user by exact name
func (s *UserService) GetByName(ctx context.Context, name string) (*model.User, error) {
	return s.userRepo.GetByName(ctx, name)
}

// UpdateUserRequest holds optional profile changes
type UpdateUserRequest struct {
	Name     *string
	Password *string
}

// Update renames a user or resets their password. Admin only.
func (s *UserService) Update(ctx context.Context, actor *Actor, id int64, req UpdateUserRequest) (*model.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var upd model.UserUpdate
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		if len(name) > maxNameLength {
			return nil, ErrNameTooLong
		}
		upd.Name = &name
	}
	if req.Password != nil {
		if *req.Password == "" {
			return nil, ErrPasswordRequired
		}
		if len(*req.Password) > maxPasswordLength {
			return nil, ErrPasswordTooLong
		}
		hash, err := s.passwords.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		upd.Hash = &hash
	}

	return s.userRepo.Update(ctx, id, upd)
}

// Delete removes a user. Users that appear in the transfer ledger cannot be
// deleted; GoodJobs they still hold become unowned. Admin only.
func (s *UserService) Delete(ctx context.Context, actor *Actor, id int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("user deleted", "user_id", id, "actor_id", actor.UserID)
	return nil
}
