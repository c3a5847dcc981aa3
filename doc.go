// Package authgate is the identity and access-control core of a
// server-rendered web application: credential verification, Redis-backed
// login sessions, TOTP second-factor provisioning/verification, and a
// role-aware authorization gate evaluated before every protected operation.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (LoginResult, Identity, TwoFactorSetup, State). Credential
// storage, password hashing, session encoding, and cookie signing live in
// sub-packages; the engine reaches them only through [users.Store],
// [password.Hasher], [session.Store], and [token.Manager].
//
// # The access-control state machine
//
// A session moves through four states: [StateAnonymous],
// [StateSetupRequired] (authenticated, no second factor configured),
// [StateVerifyRequired] (second factor configured but not proven this
// session), and [StateVerified]. The state is derived per request from the
// session record and the user record, never persisted, so a fresh session
// always restarts at anonymous and the second factor must be re-proven every
// session.
//
// [Engine.Authorize] evaluates the gate chain — authenticated, then second
// factor, then role — in that fixed order and short-circuits on the first
// denial, returning a sentinel error the caller maps to a redirect
// ([ErrUnauthenticated], [ErrSecondFactorSetupRequired],
// [ErrSecondFactorRequired]) or a terminal 403 ([ErrForbidden]).
package authgate
