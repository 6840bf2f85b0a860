package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/or-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	svc, err := NewTokenService("secret", "or-identity")
	require.NoError(t, err)

	token, expires, err := svc.Issue("user-1", models.RoleScheduler, 30*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expires, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleScheduler, claims.Role)
	assert.Equal(t, "or-identity", claims.Issuer)
}

func TestTokenServiceRejects(t *testing.T) {
	svc, err := NewTokenService("secret", "or-identity")
	require.NoError(t, err)

	expired := &TokenService{secret: []byte("secret"), issuer: "or-identity", now: func() time.Time { return time.Now().Add(-2 * time.Hour) }}
	expiredToken, _, err := expired.Issue("user-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewTokenService("secret", "someone-else")
	require.NoError(t, err)
	foreignToken, _, err := otherIssuer.Issue("user-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)

	noRole, _, err := svc.Issue("user-1", "", time.Hour)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &models.JWTClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Issuer: "or-identity"}}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":        "not-a-token",
		"expired":        expiredToken,
		"wrong issuer":   foreignToken,
		"missing role":   noRole,
		"signing method": hs512,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Validate(token)
			requireAppError(t, err, appErrors.ErrUnauthorized.Code)
		})
	}
}

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	_, err := NewTokenService("", "")
	assert.Error(t, err)
}
