package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/ims-service/internal/domain"
)

var (
	// ErrTokenExpired is returned by Verify for a well-signed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers bad signatures, foreign algorithms and malformed claims.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims describes the JWT payload.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies session tokens with a process-wide HMAC key.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption customizes a TokenIssuer.
type TokenOption func(*TokenIssuer)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(ti *TokenIssuer) {
		ti.now = now
	}
}

// NewTokenIssuer builds an issuer whose tokens live for domain.SessionTTL.
func NewTokenIssuer(secret string, opts ...TokenOption) *TokenIssuer {
	ti := &TokenIssuer{secret: []byte(secret), ttl: domain.SessionTTL, now: time.Now}
	for _, opt := range opts {
		opt(ti)
	}
	return ti
}

// Issue builds and signs a token for the account and role.
func (ti *TokenIssuer) Issue(accountID, roleName string) (string, time.Time, error) {
	// NumericDate has second precision; truncate so exp-iat is exactly the TTL.
	issuedAt := ti.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(ti.ttl)
	claims := &Claims{
		UserID: accountID,
		Role:   roleName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(ti.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify validates signature and expiry and returns the session it asserts.
func (ti *TokenIssuer) Verify(tokenStr string) (*domain.Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" || claims.Role == "" || claims.IssuedAt == nil {
		return nil, ErrTokenInvalid
	}
	return &domain.Session{
		AccountID: claims.UserID,
		RoleName:  claims.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
