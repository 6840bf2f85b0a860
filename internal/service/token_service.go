package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/or-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
)

// TokenService verifies HS256 bearer tokens issued by the hospital identity
// provider. It can also mint tokens for operators and tests.
type TokenService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokenService constructs a token service. The secret must not be empty.
func NewTokenService(secret, issuer string) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &TokenService{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Validate parses and verifies a token, returning its claims.
func (s *TokenService) Validate(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithTimeFunc(s.now)}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no role")
	}
	return claims, nil
}

// Issue signs a token for userID with the given role, valid for ttl.
func (s *TokenService) Issue(userID string, role models.UserRole, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	issuedAt := s.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &models.JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
