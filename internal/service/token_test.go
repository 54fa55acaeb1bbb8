package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/goodjobs/internal/model"
	"github.com/forgo/goodjobs/pkg/jwt"
)

func TestFormatExpiresIn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want string
	}{
		{7 * 24 * time.Hour, "7d"},
		{6*24*time.Hour + 23*time.Hour + 59*time.Minute + 30*time.Second, "6d 23h 59m"},
		{2*time.Hour + 5*time.Minute, "2h 5m"},
		{24*time.Hour + 3*time.Minute, "1d 3m"},
		{59 * time.Second, "Less than 1 minute"},
		{0, "Less than 1 minute"},
		{-time.Hour, "Less than 1 minute"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatExpiresIn(tt.in), "FormatExpiresIn(%v)", tt.in)
	}
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewTokenService(TokenServiceConfig{
		JWTService: jwt.NewTestService("secret", "", 0, func() time.Time { return now }),
	})

	token, err := svc.Issue(&model.User{ID: 3, Name: "dora", IsAdmin: true})
	require.NoError(t, err)

	claims, ok := svc.Verify(token)
	require.True(t, ok)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "dora", claims.Name)
	assert.True(t, claims.IsAdmin())

	status := svc.Status(claims)
	assert.True(t, status.Valid)
	assert.Equal(t, "7d", status.ExpiresIn)
	assert.Equal(t, 7*24*3600, svc.ExpiresInSeconds())
}

func TestTokenService_Status_NilClaims(t *testing.T) {
	t.Parallel()
	svc := NewTokenService(TokenServiceConfig{JWTService: jwt.NewTestService("secret", "", 0, nil)})

	status := svc.Status(nil)

	assert.False(t, status.Valid)
	assert.Nil(t, status.Claims)
}

func TestTokenService_Verify_Garbage(t *testing.T) {
	t.Parallel()
	svc := NewTokenService(TokenServiceConfig{JWTService: jwt.NewTestService("secret", "", 0, nil)})

	claims, ok := svc.Verify("not-a-token")

	assert.False(t, ok)
	assert.Nil(t, claims)
}
