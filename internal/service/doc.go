// Package service implements the business logic of the GoodJobs ledger.
//
// Services sit between the HTTP handlers and the repositories. Each one
// follows the same shape: a NewXxxService constructor taking a config struct
// of dependencies, repository interfaces declared here so tests can swap
// storage, and context-first methods.
//
//   - AuthService: registration (the first account becomes admin), login,
//     admin-driven account creation and the current-user view
//   - LedgerService: minting, transfer, lookups and deletion of GoodJobs
//   - UserService: directory reads and admin maintenance
//   - TokenService: token issue and verification on top of pkg/jwt
//
// # Callers
//
// Operations that need a caller take an *Actor built from verified token
// claims with ActorFromClaims. A nil actor is anonymous. Admin checks use the
// role carried in the token.
//
// # Errors
//
// Errors reaching clients are model.DomainError values, so handlers map them
// with errors.Is against model.ErrNotFound, model.ErrValidation,
// model.ErrUnauthenticated or model.ErrForbidden. The service-specific ones
// live in errors.go.
//
// # Passwords
//
// New hashes use the configured algorithm. The default is an unsalted
// SHA-256 digest kept for compatibility with stored accounts; bcrypt can be
// enabled at any time because verification accepts both formats.
package service
