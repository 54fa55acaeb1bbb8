// Package middleware provides HTTP middleware for the GoodJobs API.
//
// Everything here is a plain func(http.Handler) http.Handler, composed with
// Chain. The server installs them in this order:
//
//	middleware.Chain(router,
//	    middleware.RequestID,
//	    middleware.Logger,
//	    middleware.Recovery,
//	    middleware.CORS(origins),
//	    middleware.Compress,
//	    middleware.OptionalAuth(tokens),
//	    middleware.RateLimit(limiter),
//	    middleware.Idempotency(store),
//	)
//
// # Authentication
//
// OptionalAuth verifies a bearer token when one is sent and stores the claims
// in the request context. Bad tokens never fail the request; they leave it
// anonymous. Routes that need a caller wrap their handler with RequireAuth or
// RequireAdmin.
//
//	claims := middleware.GetClaims(r.Context())
//	userID := middleware.GetUserID(r.Context())
//
// # Rate Limiting
//
// RateLimit keeps a golang.org/x/time/rate token bucket per user, or per
// remote host for anonymous callers, and answers 429 with Retry-After.
//
// # Idempotency
//
// POST and PATCH requests carrying an Idempotency-Key header are answered
// once; retries with the same key, caller, path and body replay the stored
// response with X-Idempotency-Replayed: true.
package middleware
