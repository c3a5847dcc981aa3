package session

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// CurrentSchemaVersion is the version byte written in front of every encoded
// session blob. Decode rejects anything else.
const CurrentSchemaVersion = 1

// ErrCorruptSession is returned by Decode for blobs that do not parse.
var ErrCorruptSession = errors.New("session: corrupt blob")

const (
	maxUserIDLen  = 255
	maxSecretLen  = 255
	flagVerified  = 1 << 0
	flagHasSecret = 1 << 1
)

// Encode serializes a session. Layout:
//
//	version (1) | userID len (1) | userID | flags (1) |
//	[pending secret len (1) | pending secret] | createdAt (8 BE) | expiresAt (8 BE)
//
// The pending-secret block is present only when flagHasSecret is set.
// SessionID is the Redis key and is not part of the blob.
func Encode(sess *Session) ([]byte, error) {
	if sess == nil {
		return nil, errors.New("session: nil session")
	}
	if len(sess.UserID) == 0 || len(sess.UserID) > maxUserIDLen {
		return nil, fmt.Errorf("session: user id length %d out of range", len(sess.UserID))
	}
	if len(sess.PendingSecret) > maxSecretLen {
		return nil, fmt.Errorf("session: pending secret length %d out of range", len(sess.PendingSecret))
	}

	size := 1 + 1 + len(sess.UserID) + 1 + 8 + 8
	if len(sess.PendingSecret) > 0 {
		size += 1 + len(sess.PendingSecret)
	}

	buf := make([]byte, 0, size)
	buf = append(buf, CurrentSchemaVersion)
	buf = append(buf, byte(len(sess.UserID)))
	buf = append(buf, sess.UserID...)

	var flags byte
	if sess.TwoFactorVerified {
		flags |= flagVerified
	}
	if len(sess.PendingSecret) > 0 {
		flags |= flagHasSecret
	}
	buf = append(buf, flags)

	if len(sess.PendingSecret) > 0 {
		buf = append(buf, byte(len(sess.PendingSecret)))
		buf = append(buf, sess.PendingSecret...)
	}

	buf = binary.BigEndian.AppendUint64(buf, uint64(sess.CreatedAt))
	buf = binary.BigEndian.AppendUint64(buf, uint64(sess.ExpiresAt))

	return buf, nil
}

// Decode parses a blob produced by Encode. The caller fills in SessionID
// from the Redis key.
func Decode(data []byte) (*Session, error) {
	if len(data) < 3 {
		return nil, ErrCorruptSession
	}
	if data[0] != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: unknown version %d", ErrCorruptSession, data[0])
	}

	idx := 1
	userLen := int(data[idx])
	idx++
	if userLen == 0 || len(data) < idx+userLen+1 {
		return nil, ErrCorruptSession
	}
	userID := string(data[idx : idx+userLen])
	idx += userLen

	flags := data[idx]
	idx++

	var pending []byte
	if flags&flagHasSecret != 0 {
		if len(data) < idx+1 {
			return nil, ErrCorruptSession
		}
		secretLen := int(data[idx])
		idx++
		if secretLen == 0 || len(data) < idx+secretLen {
			return nil, ErrCorruptSession
		}
		pending = append([]byte(nil), data[idx:idx+secretLen]...)
		idx += secretLen
	}

	if len(data) != idx+16 {
		return nil, ErrCorruptSession
	}
	createdAt := int64(binary.BigEndian.Uint64(data[idx:]))
	expiresAt := int64(binary.BigEndian.Uint64(data[idx+8:]))

	return &Session{
		UserID:            userID,
		TwoFactorVerified: flags&flagVerified != 0,
		PendingSecret:     pending,
		CreatedAt:         createdAt,
		ExpiresAt:         expiresAt,
	}, nil
}
