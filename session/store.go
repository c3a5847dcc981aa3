package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transport-level Redis failures. Not-found is
// reported as redis.Nil, never as this error.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Store is a Redis-backed session store handling persistence, expiration,
// and sliding window renewal capped by the absolute session lifetime.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	sliding bool
}

// NewStore creates a session [Store] backed by the given Redis client.
// prefix sets the Redis key namespace; sliding controls whether reads renew
// the TTL.
func NewStore(redis redis.UniversalClient, prefix string, sliding bool) *Store {
	return &Store{
		redis:   redis,
		prefix:  prefix,
		sliding: sliding,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Save persists a [Session] with the given TTL.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	data, err := Encode(sess)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(sess.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get retrieves a session by ID. Missing and expired sessions report
// redis.Nil; an expired blob is deleted on the way out. When sliding renewal
// is on, a successful read extends the key TTL up to the remaining absolute
// lifetime.
func (s *Store) Get(ctx context.Context, sessionID string, absoluteLifetime time.Duration) (*Session, error) {
	key := s.key(sessionID)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	sess, err := Decode(data)
	if err != nil {
		return nil, err
	}
	sess.SessionID = sessionID

	remaining := remainingAbsoluteTTL(sess, absoluteLifetime, time.Now())
	if remaining <= 0 {
		if err := s.Delete(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, redis.Nil
	}

	if s.sliding && absoluteLifetime > 0 {
		// Renew the key up to the remaining absolute lifetime. The cap in
		// remainingAbsoluteTTL keeps renewal from extending a session past
		// CreatedAt+absoluteLifetime.
		if err := s.redis.Expire(ctx, key, remaining).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return sess, nil
}

// Update applies fn to the current session record and writes it back,
// preserving the key's remaining TTL. This is a plain read-modify-write:
// concurrent updates to the same session are last-writer-wins, which is
// acceptable because a session is only ever touched by requests
// authenticated as that session.
func (s *Store) Update(ctx context.Context, sessionID string, fn func(*Session) error) (*Session, error) {
	key := s.key(sessionID)

	sess, err := s.Get(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	if err := fn(sess); err != nil {
		return nil, err
	}

	pttl, err := s.redis.PTTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if pttl <= 0 {
		return nil, redis.Nil
	}

	data, err := Encode(sess)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, key, data, pttl).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// Delete removes a session. Deleting a session that does not exist is not
// an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time Redis availability check.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func remainingAbsoluteTTL(sess *Session, absoluteLifetime time.Duration, now time.Time) time.Duration {
	storedExpiry := time.Unix(sess.ExpiresAt, 0)
	if absoluteLifetime <= 0 {
		return storedExpiry.Sub(now)
	}

	configCap := time.Unix(sess.CreatedAt, 0).Add(absoluteLifetime)
	if configCap.Before(storedExpiry) {
		return configCap.Sub(now)
	}
	return storedExpiry.Sub(now)
}
