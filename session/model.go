package session

// Session is the server-side record for one authenticated browser.
//
// TwoFactorVerified is per-session state: it is never copied to the user
// record, so every new session starts unverified regardless of the user's
// stored secret. PendingSecret holds a second-factor secret generated during
// setup and not yet confirmed; it is replaced wholesale when setup is
// restarted and cleared on confirmation.
type Session struct {
	SessionID         string
	UserID            string
	TwoFactorVerified bool
	PendingSecret     []byte
	CreatedAt         int64
	ExpiresAt         int64
}
