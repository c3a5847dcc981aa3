// Package internal holds helpers shared by the engine that are not part of
// the public API.
package internal

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// NewSessionID returns a 128-bit random identifier encoded as unpadded
// base64url.
func NewSessionID() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("internal: session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
