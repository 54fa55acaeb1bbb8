package jwt

import (
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// DefaultExpiration is the fixed token lifetime. Tokens are not refreshed.
const DefaultExpiration = 7 * 24 * time.Hour

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidKey       = errors.New("invalid key")
)

// Claims is the token payload: {userId, name, isAdmin, iat, exp}
type Claims struct {
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
	Admin  bool   `json:"isAdmin"`
	gojwt.RegisteredClaims
}

// IsAdmin returns true if the claims carry the admin role
func (c *Claims) IsAdmin() bool {
	return c.Admin
}

// ExpiresIn returns the time left until expiry relative to now
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Service signs and validates HS256 tokens
type Service struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// Config holds JWT service configuration
type Config struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

// NewService creates a new JWT service
func NewService(cfg Config) (*Service, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("%w: secret is empty", ErrInvalidKey)
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = DefaultExpiration
	}
	return &Service{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		expiration: cfg.Expiration,
		now:        time.Now,
	}, nil
}

// Sign creates a signed token. IssuedAt and ExpiresAt are set from the
// service clock unless the caller already filled ExpiresAt.
func (s *Service) Sign(claims Claims) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrInvalidKey
	}

	now := s.now()
	claims.IssuedAt = gojwt.NewNumericDate(now)
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = gojwt.NewNumericDate(now.Add(s.expiration))
	}
	if s.issuer != "" {
		claims.Issuer = s.issuer
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}
	return signed, nil
}

// Validate parses a token and returns its claims
func (s *Service) Validate(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrInvalidKey
	}

	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, gojwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := gojwt.ParseWithClaims(tokenString, claims, func(t *gojwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case err == nil && token.Valid:
		return claims, nil
	case errors.Is(err, gojwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, gojwt.ErrTokenSignatureInvalid):
		return nil, ErrInvalidSignature
	default:
		return nil, ErrInvalidToken
	}
}

// Verify reports whether the token is valid. It never fails: malformed,
// expired and badly signed tokens all yield (nil, false).
func (s *Service) Verify(tokenString string) (*Claims, bool) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// GetExpiration returns the token expiration duration
func (s *Service) GetExpiration() time.Duration {
	return s.expiration
}

// Now returns the service clock's current time
func (s *Service) Now() time.Time {
	return s.now()
}

// NewTestService creates a JWT service with a fixed secret and an optional
// clock. This should only be used in tests, not in production code.
func NewTestService(secret, issuer string, expiration time.Duration, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &Service{
		secret:     []byte(secret),
		issuer:     issuer,
		expiration: expiration,
		now:        now,
	}
}
