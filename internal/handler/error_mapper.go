package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/forgo/goodjobs/internal/middleware"
	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/internal/service"
)

// MapServiceError converts a service error to a ProblemDetails response.
// Domain errors carry their client-facing message, so the detail is the
// error text; anything unrecognised becomes a generic 500.
func MapServiceError(err error) *model.ProblemDetails {
	if err == nil {
		return nil
	}

	switch {
	// ===== Authentication Errors → 401 =====
	case errors.Is(err, model.ErrUnauthenticated):
		p := model.NewUnauthorizedError(err.Error())
		if errors.Is(err, service.ErrInvalidCredentials) {
			p.Code = model.ErrCodeLoginFailed
		}
		return p

	// ===== Authorization Errors → 403 =====
	case errors.Is(err, service.ErrAdminRequired):
		p := model.NewForbiddenError(err.Error())
		p.Code = model.ErrCodeAdminRequired
		return p
	case errors.Is(err, model.ErrNotOwner),
		errors.Is(err, service.ErrNotYourGoodJob):
		return model.NewLedgerRuleError(http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrForbidden):
		return model.NewForbiddenError(err.Error())

	// ===== Not Found Errors → 404 =====
	case errors.Is(err, model.ErrNotFound):
		p := model.NewNotFoundError("resource")
		p.Detail = err.Error()
		return p

	// ===== Conflict Errors → 409 =====
	case errors.Is(err, model.ErrUserExists),
		errors.Is(err, model.ErrUserHasTransfers):
		return model.NewConflictError(err.Error())

	// ===== Ledger Rules → 400 =====
	case errors.Is(err, model.ErrAdminCannotOwn),
		errors.Is(err, model.ErrAdminCannotReceive),
		errors.Is(err, model.ErrSelfTransfer),
		errors.Is(err, service.ErrNoTransferableGoodJob):
		return model.NewLedgerRuleError(http.StatusBadRequest, err.Error())

	// ===== Validation Errors → 400 =====
	case errors.Is(err, service.ErrNameRequired),
		errors.Is(err, service.ErrNameTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "name", Message: err.Error()}})
	case errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, service.ErrPasswordTooLong):
		return model.NewValidationError([]model.FieldError{{Field: "password", Message: err.Error()}})
	case errors.Is(err, service.ErrRecipientRequired):
		return model.NewValidationError([]model.FieldError{{Field: "toUserId", Message: err.Error()}})
	case errors.Is(err, model.ErrValidation):
		p := model.NewValidationError(nil)
		p.Detail = err.Error()
		return p

	// ===== Default → 500 =====
	default:
		return model.NewInternalError("")
	}
}

// MapServiceErrorWithContext converts a service error to a ProblemDetails response
// with additional context about the operation that failed.
func MapServiceErrorWithContext(err error, operation string) *model.ProblemDetails {
	pd := MapServiceError(err)
	if pd != nil && pd.Status == http.StatusInternalServerError {
		pd.Detail = operation + ": an unexpected error occurred"
	}
	return pd
}

// writeServiceError maps err and writes it. Unexpected errors are logged
// with the request id because the client only sees a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	pd := MapServiceErrorWithContext(err, operation)
	if pd.Status == http.StatusInternalServerError {
		slog.Error("request failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())),
		)
	}
	pd.Instance = r.URL.Path
	WriteError(w, pd)
}
