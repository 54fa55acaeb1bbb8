// Package repository implements the data access layer for the GoodJobs API.
//
// # Repositories
//
//   - UserRepository: the user directory (unique names, CRUD)
//   - GoodJobRepository: the token ledger (minting, transfers with balances,
//     the received-before selection rule, history and audits)
//
// # Query Patterns
//
// Queries are plain SQL with '?' placeholders, rebound for the active driver
// and executed through sqlx. Multi-statement operations run inside
// database.Database.WithTx so they commit or roll back as a unit.
//
// # Errors
//
// Missing rows surface as model.ErrUserNotFound or model.ErrGoodJobNotFound;
// rule violations as the matching model.DomainError. Optional results
// (GetReceivedBeforeGoodJob, GetLastTransfer) return nil without an error
// when there is nothing to return.
//
// # Example Usage
//
//	repo := repository.NewGoodJobRepository(db)
//	transfer, err := repo.AddTransfer(ctx, model.NewTransfer{
//	    GoodJobID: 7, FromUserID: 2, ToUserID: 3,
//	})
//	if errors.Is(err, model.ErrValidation) {
//	    // rejected by a ledger rule
//	}
package repository
