package authgate

import (
	"context"
	"errors"

	"github.com/stockfolio/authgate/session"
	"github.com/stockfolio/authgate/users"
)

// gateState is the per-request working set the gate chain evaluates against.
// It is filled by the first gate and read by the rest.
type gateState struct {
	sess *session.Session
	user *users.User
}

// gate is one admission predicate. Gates run in the order they appear in
// Engine.gates and the chain short-circuits on the first denial.
type gate struct {
	name  string
	admit func(ctx context.Context, st *gateState, req Requirement) error
}

func (e *Engine) buildGates() []gate {
	return []gate{
		{
			name: "authenticated",
			admit: func(ctx context.Context, st *gateState, _ Requirement) error {
				sess, err := e.liveSession(ctx, st.sess.SessionID)
				if err != nil {
					return err
				}
				user, err := e.sessionUser(ctx, sess)
				if err != nil {
					return err
				}
				st.sess = sess
				st.user = user
				return nil
			},
		},
		{
			name: "second-factor",
			admit: func(_ context.Context, st *gateState, req Requirement) error {
				if req.AllowUnverified {
					return nil
				}
				if len(st.user.TwoFactorSecret) == 0 {
					return ErrSecondFactorSetupRequired
				}
				if !st.sess.TwoFactorVerified {
					return ErrSecondFactorRequired
				}
				return nil
			},
		},
		{
			name: "role",
			admit: func(_ context.Context, st *gateState, req Requirement) error {
				if !st.user.Role.Satisfies(req.MinRole) {
					return ErrForbidden
				}
				return nil
			},
		},
	}
}

// Authorize runs the gate chain for a protected operation: authenticated,
// then second factor, then role, short-circuiting on the first denial. On
// success it returns the admitted identity with the session's current state.
//
// Denials map onto sentinels the caller can route on: ErrUnauthenticated
// (go to login), ErrSecondFactorSetupRequired (go to setup),
// ErrSecondFactorRequired (go to verify), ErrForbidden (terminal 403).
func (e *Engine) Authorize(ctx context.Context, sessionID string, req Requirement) (*Identity, error) {
	st := &gateState{sess: &session.Session{SessionID: sessionID}}
	for _, g := range e.gates {
		if err := g.admit(ctx, st, req); err != nil {
			return nil, err
		}
	}
	return &Identity{
		UserID:   st.user.ID,
		Username: st.user.Username,
		Role:     st.user.Role,
		State:    deriveState(st.user, st.sess),
	}, nil
}

// StateOf reports the session's position in the access-control state
// machine. An unknown or expired session is simply anonymous.
func (e *Engine) StateOf(ctx context.Context, sessionID string) (State, error) {
	sess, err := e.liveSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return StateAnonymous, nil
		}
		return StateAnonymous, err
	}
	user, err := e.sessionUser(ctx, sess)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return StateAnonymous, nil
		}
		return StateAnonymous, err
	}
	return deriveState(user, sess), nil
}

// deriveState computes the state from the user record and the session's
// verified flag. Nothing here is persisted: a new session always derives to
// setup-required or verify-required, never verified.
func deriveState(user *users.User, sess *session.Session) State {
	switch {
	case len(user.TwoFactorSecret) == 0:
		return StateSetupRequired
	case !sess.TwoFactorVerified:
		return StateVerifyRequired
	default:
		return StateVerified
	}
}
