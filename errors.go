package authgate

import "errors"

// Sentinel errors returned by Engine operations. Callers are expected to
// branch with errors.Is; the middleware package maps each to an HTTP
// redirect or status code.
var (
	// ErrInvalidCredentials covers both unknown-username and wrong-password
	// login failures. The two cases are never distinguishable to the caller.
	ErrInvalidCredentials = errors.New("authgate: invalid credentials")

	// ErrDuplicateKey is returned by Register when the username
	// (case-insensitive) or email is already taken.
	ErrDuplicateKey = errors.New("authgate: username or email already taken")

	// ErrNotFound is returned when an operation references a user that does
	// not exist.
	ErrNotFound = errors.New("authgate: user not found")

	// ErrInvalidRole is returned by ChangeRole for a role outside the
	// enumeration. The target user is left unchanged.
	ErrInvalidRole = errors.New("authgate: invalid role")

	// ErrInvalidCode is returned when a submitted one-time code does not
	// verify against the relevant secret.
	ErrInvalidCode = errors.New("authgate: invalid one-time code")

	// ErrInvalidRegistration is returned by Register when a required field
	// is empty.
	ErrInvalidRegistration = errors.New("authgate: invalid registration fields")

	// ErrUnauthenticated means the first gate failed: no live session, or
	// the session's user no longer exists. Callers redirect to login.
	ErrUnauthenticated = errors.New("authgate: not authenticated")

	// ErrSecondFactorSetupRequired means the session's user has never
	// configured a second factor. Callers redirect to the setup page.
	ErrSecondFactorSetupRequired = errors.New("authgate: second factor setup required")

	// ErrSecondFactorRequired means the user has a configured second factor
	// that has not been proven this session. Callers redirect to the verify
	// page.
	ErrSecondFactorRequired = errors.New("authgate: second factor verification required")

	// ErrSecondFactorNotConfigured is returned by VerifyTwoFactor when the
	// user has no persisted secret to verify against.
	ErrSecondFactorNotConfigured = errors.New("authgate: second factor not configured")

	// ErrSecondFactorAlreadyConfigured is returned by BeginTwoFactorSetup
	// when the user already confirmed a secret.
	ErrSecondFactorAlreadyConfigured = errors.New("authgate: second factor already configured")

	// ErrSecondFactorSetupNotStarted is returned by ConfirmTwoFactorSetup
	// when the session holds no pending secret.
	ErrSecondFactorSetupNotStarted = errors.New("authgate: second factor setup not started")

	// ErrForbidden means the role gate failed. This is a terminal denial,
	// not a redirect.
	ErrForbidden = errors.New("authgate: forbidden")

	// ErrEngineNotReady is returned by Build when required collaborators
	// are missing.
	ErrEngineNotReady = errors.New("authgate: engine not ready")

	// ErrInternal is the generic surface for unexpected storage faults. The
	// underlying cause is logged, never returned to the caller.
	ErrInternal = errors.New("authgate: internal error")
)
