// Package jwt signs and validates the bearer tokens used by the GoodJobs API.
//
// Tokens are HS256 JWTs carrying {userId, name, isAdmin, iat, exp} with a
// fixed seven day lifetime. There is no refresh flow.
//
//	svc, err := jwt.NewService(jwt.Config{Secret: cfg.JWT.Secret})
//	token, err := svc.Sign(jwt.Claims{UserID: u.ID, Name: u.Name, Admin: u.IsAdmin})
//	claims, ok := svc.Verify(token)
//
// Validate returns one of ErrInvalidToken, ErrTokenExpired or
// ErrInvalidSignature. Verify collapses those into a boolean.
package jwt
