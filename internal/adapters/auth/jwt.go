package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSecret     = errors.New("jwt secret not configured")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carries the authenticated user. Tokens issued by the account
// service put the id in user_id; older ones only set sub.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTIdentity verifies HS256 tokens signed with a shared secret.
type JWTIdentity struct {
	secret []byte
	issuer string
}

var _ core.Identity = (*JWTIdentity)(nil)

func NewJWTIdentity(secret, issuer string) *JWTIdentity {
	return &JWTIdentity{secret: []byte(secret), issuer: issuer}
}

func (j *JWTIdentity) Authenticate(token string) (domain.UserID, error) {
	if len(j.secret) == 0 {
		return "", ErrNoSecret
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" || len(id) > domain.MaxUserIDLen {
		return "", fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return domain.UserID(id), nil
}

// Issue signs a token for userID. Used by tests and local tooling; the
// account service issues tokens in production.
func (j *JWTIdentity) Issue(userID domain.UserID, ttl time.Duration) (string, error) {
	if len(j.secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := Claims{
		UserID: string(userID),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
