// Package token signs and parses the browser-facing session cookie. The
// cookie value is an HS256 JWT carrying only the server-side session ID;
// everything else about the session lives in Redis. Any parse or validation
// failure is reported as ErrInvalid so a tampered cookie is
// indistinguishable from an absent one.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned by Parse for any token that does not verify.
var ErrInvalid = errors.New("token: invalid session token")

const minSecretLen = 32

// Manager issues and parses signed session tokens.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

// NewManager returns a Manager. The secret must be at least 32 bytes and
// the ttl positive.
func NewManager(secret []byte, ttl time.Duration) (*Manager, error) {
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("token: secret must be at least %d bytes", minSecretLen)
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &Manager{secret: key, ttl: ttl}, nil
}

type sessionClaims struct {
	SID string `json:"sid"`
	jwt.RegisteredClaims
}

// Issue signs a token carrying sessionID, valid for the configured TTL.
func (m *Manager) Issue(sessionID string) (string, error) {
	if sessionID == "" {
		return "", errors.New("token: empty session id")
	}

	now := time.Now()
	claims := sessionClaims{
		SID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the session ID it carries. Expired,
// malformed, tampered, and wrongly-signed tokens all report ErrInvalid.
func (m *Manager) Parse(value string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", ErrInvalid
	}
	if claims.SID == "" {
		return "", ErrInvalid
	}
	return claims.SID, nil
}
