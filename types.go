package authgate

import "github.com/stockfolio/authgate/users"

// RegisterRequest carries the fields accepted at registration. Role is not
// accepted here: new accounts always start with the configured default role.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Age       int
	Gender    string
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	SessionID string
	// Token is the signed cookie value the caller sets on the browser.
	Token  string
	UserID string
	// State is the checkpoint the caller should route the browser to next:
	// StateSetupRequired or StateVerifyRequired. Login never lands directly
	// on StateVerified.
	State State
}

// TwoFactorSetup is returned by BeginTwoFactorSetup.
type TwoFactorSetup struct {
	// SecretBase32 is the human-readable fallback for manual entry.
	SecretBase32 string
	// ProvisioningURI is the otpauth:// URI rendered as a QR code.
	ProvisioningURI string
}

// Identity is the result of a successful Authorize: the authenticated user
// as seen by the gate chain, with the session's current state.
type Identity struct {
	UserID   string
	Username string
	Role     users.Role
	State    State
}

// Requirement describes what a protected operation demands beyond
// authentication.
type Requirement struct {
	// AllowUnverified skips the second-factor gate. Used by the 2FA setup
	// and verify pages themselves, which must be reachable before the
	// session is verified.
	AllowUnverified bool
	// MinRole, when set, is the minimum role admitted by the role gate
	// (editor operations accept editor or admin; admin operations accept
	// admin only). Empty means any role.
	MinRole users.Role
}
