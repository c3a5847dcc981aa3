package authgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/stockfolio/authgate/users"
	"golang.org/x/crypto/bcrypt"
)

// Config holds engine settings. Instances are configured during
// initialization and treated as immutable after Build.
type Config struct {
	Session  SessionConfig
	Password PasswordConfig
	TOTP     TOTPConfig
	Token    TokenConfig
	Account  AccountConfig
}

// SessionConfig controls the Redis-backed session store.
type SessionConfig struct {
	RedisPrefix string
	// Lifetime is the absolute session lifetime. Sliding renewal never
	// extends a session past CreatedAt+Lifetime.
	Lifetime          time.Duration
	SlidingExpiration bool
}

// PasswordConfig controls the bcrypt hasher.
type PasswordConfig struct {
	Cost int
}

// TOTPConfig controls one-time code generation and verification.
type TOTPConfig struct {
	// Issuer is the label shown by authenticator apps.
	Issuer string
	Digits int
	// Period is the time-step size in seconds.
	Period int
	// Skew is how many adjacent time steps on each side of now are accepted.
	Skew int
	// Algorithm is SHA1 (default), SHA256, or SHA512.
	Algorithm string
}

// TokenConfig controls the signed session cookie.
type TokenConfig struct {
	// Secret is the HMAC key for the session cookie. Must be at least 32
	// bytes.
	Secret []byte
	// TTL of the cookie token. Zero means the session lifetime.
	TTL time.Duration
}

// AccountConfig controls account creation defaults.
type AccountConfig struct {
	DefaultRole users.Role
}

func defaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RedisPrefix:       "ag",
			Lifetime:          24 * time.Hour,
			SlidingExpiration: true,
		},
		Password: PasswordConfig{
			Cost: 10,
		},
		TOTP: TOTPConfig{
			Issuer:    "authgate",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Token: TokenConfig{},
		Account: AccountConfig{
			DefaultRole: users.RoleEditor,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix required")
	}
	if c.Session.Lifetime <= 0 {
		return errors.New("session lifetime must be positive")
	}
	if c.Password.Cost < bcrypt.MinCost || c.Password.Cost > bcrypt.MaxCost {
		return fmt.Errorf("password cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.TOTP.Issuer == "" {
		return errors.New("totp issuer required")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 10 {
		return errors.New("totp digits must be between 6 and 10")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("totp period must be positive")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 10 {
		return errors.New("totp skew must be between 0 and 10")
	}
	switch c.TOTP.Algorithm {
	case "SHA1", "SHA256", "SHA512":
	default:
		return fmt.Errorf("unsupported totp algorithm %q", c.TOTP.Algorithm)
	}
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.TTL < 0 {
		return errors.New("token ttl must not be negative")
	}
	switch c.Account.DefaultRole {
	case users.RoleAdmin, users.RoleEditor:
	default:
		return fmt.Errorf("unknown default role %q", c.Account.DefaultRole)
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
