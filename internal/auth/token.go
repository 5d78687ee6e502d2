package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// RefreshScope marks refresh tokens. Access tokens carry no scope.
	RefreshScope = "refresh_token"

	DefaultAccessTTL  = 60 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken covers bad signatures, malformed payloads and expired tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSubject is returned for a verified token without a "sub" claim.
	ErrMissingSubject = errors.New("token has no subject")
)

// Claims is the JWT payload for access and refresh tokens.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 tokens with a shared secret.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// CreateAccessToken signs claims with exp = now + ttl. A non-positive ttl uses the configured default.
func (ts *TokenService) CreateAccessToken(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = ts.accessTTL
	}
	claims.Scope = ""
	return ts.sign(claims, ttl)
}

// CreateRefreshToken signs claims with the refresh scope and the refresh ttl.
func (ts *TokenService) CreateRefreshToken(claims Claims) (string, error) {
	claims.Scope = RefreshScope
	return ts.sign(claims, ts.refreshTTL)
}

func (ts *TokenService) sign(claims Claims, ttl time.Duration) (string, error) {
	now := ts.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ts.secret)
}

// Decode verifies the signature and expiry of tokenStr and returns its claims.
func (ts *TokenService) Decode(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (any, error) {
		return ts.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}
