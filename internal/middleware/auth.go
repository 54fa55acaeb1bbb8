package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/pkg/jwt"
)

// ClaimsKey is the context key for verified token claims
const ClaimsKey contextKey = "claims"

// TokenVerifier checks bearer tokens
type TokenVerifier interface {
	Verify(token string) (*jwt.Claims, bool)
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// OptionalAuth attaches the caller's claims to the request context when a
// valid bearer token is present. Missing, malformed, expired or badly signed
// tokens leave the request anonymous; it never rejects.
func OptionalAuth(verifier TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, valid := verifier.Verify(token)
			if !valid {
				next.ServeHTTP(w, r)
				return
			}

			noteCaller(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It relies on OptionalAuth
// having run earlier in the chain.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) == nil {
			model.NewUnauthorizedError("Authentication required").WriteJSON(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects anonymous requests with 401 and non-admins with 403
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaims(r.Context())
		if claims == nil {
			model.NewUnauthorizedError("Authentication required").WriteJSON(w)
			return
		}
		if !claims.IsAdmin() {
			p := model.NewForbiddenError("Admin access required")
			p.Code = model.ErrCodeAdminRequired
			p.WriteJSON(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithClaims returns a context carrying claims
func WithClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserID extracts the authenticated user ID from context, or 0
func GetUserID(ctx context.Context) int64 {
	if id, ok := ctx.Value(UserIDKey).(int64); ok {
		return id
	}
	return 0
}

// GetClaims extracts the JWT claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
