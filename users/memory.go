package users

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with the same uniqueness semantics as
// the Postgres implementation. Used by tests and the example binary.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*User
	byUsername map[string]string // lower(username) -> id
	byEmail    map[string]string // lower(email) -> id
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *MemoryStore) Create(_ context.Context, in CreateInput) (*User, error) {
	uname := strings.ToLower(in.Username)
	email := strings.ToLower(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[uname]; ok {
		return nil, ErrDuplicate
	}
	if _, ok := s.byEmail[email]; ok {
		return nil, ErrDuplicate
	}

	u := &User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Age:          in.Age,
		Gender:       in.Gender,
		Role:         in.Role,
		CreatedAt:    time.Now().UTC(),
	}
	s.byID[u.ID] = u
	s.byUsername[uname] = u.ID
	s.byEmail[email] = u.ID

	return copyUser(u), nil
}

func (s *MemoryStore) GetByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(s.byID[id]), nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (s *MemoryStore) UpdateRole(_ context.Context, id string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	return nil
}

func (s *MemoryStore) SetTwoFactorSecret(_ context.Context, id string, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.TwoFactorSecret = append([]byte(nil), secret...)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, copyUser(u))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Remove deletes a record outright. Not part of the Store contract; it
// exists so tests can simulate out-of-band user removal.
func (s *MemoryStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byUsername, strings.ToLower(u.Username))
	delete(s.byEmail, strings.ToLower(u.Email))
	delete(s.byID, id)
}

// copyUser shields internal records from caller mutation.
func copyUser(u *User) *User {
	out := *u
	out.TwoFactorSecret = append([]byte(nil), u.TwoFactorSecret...)
	if len(out.TwoFactorSecret) == 0 {
		out.TwoFactorSecret = nil
	}
	return &out
}
