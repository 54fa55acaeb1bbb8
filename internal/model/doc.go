// Package model defines domain entities and error types for the GoodJobs API.
//
// # Domain Entities
//
//   - User: a participant or administrator, identified by a unique name
//   - GoodJob: a token with at most one current owner
//   - Transfer: an append-only record of one ownership change and the
//     resulting balances of both parties
//
// Entities carry both json tags (API serialization, camelCase) and db tags
// (sqlx column mapping, snake_case).
//
// # Errors
//
// Domain errors are *DomainError values wrapping one of the kinds ErrNotFound,
// ErrValidation, ErrUnauthenticated or ErrForbidden. HTTP responses use
// ProblemDetails (RFC 9457).
package model
