package users

import (
	"context"
	"errors"
	"time"
)

// Role is the coarse capability tier of a user.
type Role string

const (
	// RoleAdmin is the elevated tier.
	RoleAdmin Role = "admin"
	// RoleEditor is the default tier for new accounts.
	RoleEditor Role = "editor"
)

// ParseRole maps a raw string onto the role enumeration. Anything outside
// the enumeration is rejected.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEditor:
		return RoleEditor, true
	default:
		return "", false
	}
}

// Satisfies reports whether r meets the minimum role min. Admin satisfies
// every tier; editor satisfies editor only. An empty min admits any role.
func (r Role) Satisfies(min Role) bool {
	if min == "" {
		return true
	}
	if r == RoleAdmin {
		return true
	}
	return r == min
}

var (
	// ErrNotFound is returned by lookups that resolve no user.
	ErrNotFound = errors.New("users: not found")
	// ErrDuplicate is returned by Create when the username
	// (case-insensitive) or email is already taken.
	ErrDuplicate = errors.New("users: username or email already taken")
)

// User is a stored account record. PasswordHash always holds a digest,
// never plaintext. TwoFactorSecret is nil until the user confirms 2FA setup.
type User struct {
	ID              string
	Username        string
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Age             int
	Gender          string
	Role            Role
	TwoFactorSecret []byte
	CreatedAt       time.Time
}

// CreateInput carries the fields persisted at registration.
type CreateInput struct {
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Age          int
	Gender       string
	Role         Role
}

// Store is the credential store contract. Username lookups match ignoring
// case; the uniqueness constraint on username is case-insensitive too, so
// two users may not differ only by case. After creation only the role and
// the two-factor secret are ever mutated.
type Store interface {
	Create(ctx context.Context, in CreateInput) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	SetTwoFactorSecret(ctx context.Context, id string, secret []byte) error
	List(ctx context.Context) ([]*User, error)
}
