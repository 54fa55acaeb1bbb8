package service

import (
	"errors"

	"github.com/forgo/goodjobs/internal/model"
)

// Centralized service layer errors.
// Errors that reach a client wrap one of the model error kinds so the
// handler error mapper can pick a status with errors.Is.

// ===== Authentication Errors =====
var (
	ErrInvalidCredentials = model.NewDomainError(model.ErrUnauthenticated, "Invalid credentials")
	ErrAuthRequired       = model.NewDomainError(model.ErrUnauthenticated, "Authentication required")
	ErrNameRequired       = model.NewDomainError(model.ErrValidation, "Name is required")
	ErrNameTooLong        = model.NewDomainError(model.ErrValidation, "Name must be at most 100 characters")
	ErrPasswordRequired   = model.NewDomainError(model.ErrValidation, "Password is required")
	ErrPasswordTooLong    = model.NewDomainError(model.ErrValidation, "Password must be at most 72 characters")
)

// ===== Authorization Errors =====
var (
	ErrAdminRequired  = model.NewDomainError(model.ErrForbidden, "Admin access required")
	ErrNotYourGoodJob = model.NewDomainError(model.ErrForbidden, "You can only transfer GoodJobs that you own")
)

// ===== Ledger Errors =====
var (
	ErrNoTransferableGoodJob = model.NewDomainError(model.ErrValidation, "No GoodJob available to transfer")
	ErrRecipientRequired     = model.NewDomainError(model.ErrValidation, "toUserId is required")
)

// ===== Configuration Errors =====
var (
	ErrUnknownHasher = errors.New("unknown password hasher")
)
