package model

import "errors"

// Error kinds. Every domain error wraps exactly one of these so callers can
// branch on the kind with errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// DomainError is a user-facing error message tagged with its kind
type DomainError struct {
	kind error
	msg  string
}

// NewDomainError creates an error of the given kind
func NewDomainError(kind error, msg string) *DomainError {
	return &DomainError{kind: kind, msg: msg}
}

func (e *DomainError) Error() string { return e.msg }

func (e *DomainError) Unwrap() error { return e.kind }

// Kind returns the error kind
func (e *DomainError) Kind() error { return e.kind }

// ===== Not Found =====
var (
	ErrUserNotFound     = NewDomainError(ErrNotFound, "User not found")
	ErrGoodJobNotFound  = NewDomainError(ErrNotFound, "GoodJob not found")
	ErrTransferNotFound = NewDomainError(ErrNotFound, "No transfers found")
)

// ===== Ledger Rules =====
var (
	ErrAdminCannotOwn     = NewDomainError(ErrValidation, "Administrators cannot own GoodJobs")
	ErrNotOwner           = NewDomainError(ErrValidation, "You only can transfer your own GoodJobs")
	ErrAdminCannotReceive = NewDomainError(ErrValidation, "Administrators cannot receive GoodJobs")
	ErrSelfTransfer       = NewDomainError(ErrValidation, "Cannot transfer a GoodJob to its current owner")
)

// ===== User Directory =====
var (
	ErrUserExists       = NewDomainError(ErrValidation, "User already exists")
	ErrUserHasTransfers = NewDomainError(ErrValidation, "User has transfer history")
)
