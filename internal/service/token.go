package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/pkg/jwt"
)

// TokenService issues and checks bearer tokens
type TokenService struct {
	jwtService *jwt.Service
}

// TokenServiceConfig holds configuration for the token service
type TokenServiceConfig struct {
	JWTService *jwt.Service
}

// NewTokenService creates a new token service
func NewTokenService(cfg TokenServiceConfig) *TokenService {
	return &TokenService{jwtService: cfg.JWTService}
}

// Issue signs a token for user
func (s *TokenService) Issue(user *model.User) (string, error) {
	return s.jwtService.Sign(jwt.Claims{
		UserID: user.ID,
		Name:   user.Name,
		Admin:  user.IsAdmin,
	})
}

// Verify reports whether the token is usable. It never fails.
func (s *TokenService) Verify(token string) (*jwt.Claims, bool) {
	return s.jwtService.Verify(token)
}

// TokenStatus describes a verified token
type TokenStatus struct {
	Valid     bool
	Claims    *jwt.Claims
	ExpiresIn string
}

// Status describes already-verified claims. Nil claims yield an invalid status.
func (s *TokenService) Status(claims *jwt.Claims) TokenStatus {
	if claims == nil {
		return TokenStatus{}
	}
	return TokenStatus{
		Valid:     true,
		Claims:    claims,
		ExpiresIn: FormatExpiresIn(claims.ExpiresIn(s.jwtService.Now())),
	}
}

// ExpiresInSeconds returns the fixed token lifetime in seconds
func (s *TokenService) ExpiresInSeconds() int {
	return int(s.jwtService.GetExpiration().Seconds())
}

// FormatExpiresIn renders a remaining lifetime as "Nd Nh Nm", omitting zero
// parts. Anything under a minute is "Less than 1 minute".
func FormatExpiresIn(d time.Duration) string {
	secs := int64(d / time.Second)
	days := secs / 86400
	hours := (secs % 86400) / 3600
	minutes := (secs % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return "Less than 1 minute"
	}
	return strings.Join(parts, " ")
}
