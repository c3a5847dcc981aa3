package authgate

// State is a session's position in the access-control state machine. It is
// derived from the session record and the user record on every request and
// never persisted, so a new session always restarts at StateAnonymous.
type State uint8

const (
	// StateAnonymous: no live session.
	StateAnonymous State = iota
	// StateSetupRequired: authenticated, but the user has never configured
	// a second factor.
	StateSetupRequired
	// StateVerifyRequired: the user has a configured second factor that has
	// not been proven this session.
	StateVerifyRequired
	// StateVerified: authenticated and second factor proven this session.
	StateVerified
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateSetupRequired:
		return "setup_required"
	case StateVerifyRequired:
		return "verify_required"
	case StateVerified:
		return "verified"
	default:
		return "unknown"
	}
}
