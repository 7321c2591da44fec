package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSigning is returned by Issue when no token can be produced, most
// notably when the signing secret is empty.
var ErrSigning = errors.New("token signing failed")

// TokenReason classifies why a token was refused.
type TokenReason string

const (
	ReasonExpired      TokenReason = "expired"
	ReasonMalformed    TokenReason = "malformed"
	ReasonBadSignature TokenReason = "bad-signature"
)

// TokenError is returned by VerifyToken for every refused token.
type TokenError struct {
	Reason TokenReason
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token " + string(e.Reason)
	}
	return "token " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() error { return e.Err }

// Claims is the JWT payload: {"user":{"id":...}} plus iat and exp.
type Claims struct {
	User ClaimsUser `json:"user"`
	jwt.RegisteredClaims
}

type ClaimsUser struct {
	ID string `json:"id"`
}

// TokenManager issues and verifies HS256 tokens with one process-wide secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

type TokenOption func(*TokenManager)

// WithClock replaces time.Now for both issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(m *TokenManager) { m.now = now }
}

func NewTokenManager(secret string, ttl time.Duration, opts ...TokenOption) *TokenManager {
	m := &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	m.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	return m
}

// TTL is the lifetime given to issued tokens.
func (m *TokenManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for userID that expires TTL from now.
func (m *TokenManager) Issue(userID string) (string, error) {
	if len(m.secret) == 0 {
		return "", fmt.Errorf("%w: empty secret", ErrSigning)
	}

	now := m.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		User: ClaimsUser{ID: userID},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signed, nil
}

// VerifyToken checks the signature first and only then the time claims, so
// a tampered token is reported as bad-signature even when it has expired.
func (m *TokenManager) VerifyToken(tokenString string) (Identity, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, m.key)
	if err != nil {
		return Identity{}, &TokenError{Reason: classify(err), Err: err}
	}
	if claims.User.ID == "" {
		return Identity{}, &TokenError{Reason: ReasonMalformed, Err: errors.New("missing user id")}
	}
	return Identity{UserID: claims.User.ID}, nil
}

func (m *TokenManager) key(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	if len(m.secret) == 0 {
		return nil, errors.New("no signing secret configured")
	}
	return m.secret, nil
}

func classify(err error) TokenReason {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ReasonBadSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ReasonExpired
	default:
		return ReasonMalformed
	}
}
