package authgate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stockfolio/authgate/internal"
	"github.com/stockfolio/authgate/password"
	"github.com/stockfolio/authgate/session"
	"github.com/stockfolio/authgate/token"
	"github.com/stockfolio/authgate/users"
)

// Engine orchestrates the credential store, password hasher, one-time code
// engine, and session store behind the public operations. Construct it
// through [Builder.Build]; a zero Engine is not usable.
type Engine struct {
	config   Config
	users    users.Store
	sessions *session.Store
	tokens   *token.Manager
	hasher   *password.Hasher
	totp     *totpEngine
	gates    []gate
	log      *slog.Logger
}

// Register creates an account with a hashed password and the default role.
// No session is created; the caller routes the browser to login next.
// Returns ErrDuplicateKey when the username (ignoring case) or email is
// already taken, ErrInvalidRegistration when a required field is empty.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*users.User, error) {
	if strings.TrimSpace(req.Username) == "" ||
		strings.TrimSpace(req.Email) == "" ||
		req.Password == "" {
		return nil, ErrInvalidRegistration
	}

	digest, err := e.hasher.Hash(req.Password)
	if err != nil {
		return nil, e.internalErr("register: hash password", err)
	}
	req.Password = ""

	u, err := e.users.Create(ctx, users.CreateInput{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: digest,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Age:          req.Age,
		Gender:       req.Gender,
		Role:         e.config.Account.DefaultRole,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			return nil, ErrDuplicateKey
		}
		return nil, e.internalErr("register: create user", err)
	}

	e.log.Info("user registered", "user_id", u.ID)
	return u, nil
}

// Login verifies credentials and starts a session. Unknown usernames and
// wrong passwords both return ErrInvalidCredentials with no distinguishing
// signal. The new session is always unverified: the result's State routes
// the browser to the setup or verify checkpoint, never straight to a
// protected resource.
func (e *Engine) Login(ctx context.Context, username, plaintext string) (*LoginResult, error) {
	u, err := e.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, e.internalErr("login: lookup user", err)
	}

	ok, err := e.hasher.Verify(plaintext, u.PasswordHash)
	if err != nil {
		return nil, e.internalErr("login: verify password", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, e.internalErr("login: session id", err)
	}

	now := time.Now()
	sess := &session.Session{
		SessionID: sid,
		UserID:    u.ID,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(e.config.Session.Lifetime).Unix(),
	}
	if err := e.sessions.Save(ctx, sess, e.config.Session.Lifetime); err != nil {
		return nil, e.internalErr("login: save session", err)
	}

	signed, err := e.tokens.Issue(sid)
	if err != nil {
		return nil, e.internalErr("login: issue token", err)
	}

	e.log.Info("login", "user_id", u.ID)
	return &LoginResult{
		SessionID: sid,
		Token:     signed,
		UserID:    u.ID,
		State:     deriveState(u, sess),
	}, nil
}

// Logout destroys the session. Logging out a session that does not exist
// succeeds.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return e.internalErr("logout: delete session", err)
	}
	return nil
}

// ParseToken maps a cookie value back to the session ID it carries. Absent,
// malformed, tampered, and expired cookies all report token.ErrInvalid;
// callers treat that as anonymous.
func (e *Engine) ParseToken(value string) (string, error) {
	return e.tokens.Parse(value)
}

// BeginTwoFactorSetup generates a fresh shared secret and stashes it in the
// session as the pending secret, replacing any earlier pending value. The
// secret is not persisted to the user until ConfirmTwoFactorSetup. Returns
// ErrSecondFactorAlreadyConfigured when the user already confirmed a
// secret.
func (e *Engine) BeginTwoFactorSetup(ctx context.Context, sessionID string) (*TwoFactorSetup, error) {
	sess, err := e.liveSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	u, err := e.sessionUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	if len(u.TwoFactorSecret) > 0 {
		return nil, ErrSecondFactorAlreadyConfigured
	}

	raw, encoded, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, e.internalErr("2fa setup: generate secret", err)
	}

	if _, err := e.sessions.Update(ctx, sessionID, func(s *session.Session) error {
		s.PendingSecret = raw
		return nil
	}); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnauthenticated
		}
		return nil, e.internalErr("2fa setup: stash pending secret", err)
	}

	return &TwoFactorSetup{
		SecretBase32:    encoded,
		ProvisioningURI: e.totp.ProvisionURI(encoded, u.Username),
	}, nil
}

// ConfirmTwoFactorSetup verifies a submitted code against the session's
// pending secret. On success the secret is persisted to the user and the
// pending value cleared; the session's verified flag stays false, so the
// next protected request is routed to verify. On ErrInvalidCode the pending
// secret is retained unchanged, keeping the already-enrolled authenticator
// app in sync across retries.
func (e *Engine) ConfirmTwoFactorSetup(ctx context.Context, sessionID, code string) error {
	sess, err := e.liveSession(ctx, sessionID)
	if err != nil {
		return err
	}
	u, err := e.sessionUser(ctx, sess)
	if err != nil {
		return err
	}
	if len(sess.PendingSecret) == 0 {
		return ErrSecondFactorSetupNotStarted
	}

	ok, err := e.totp.VerifyCode(sess.PendingSecret, code, time.Now())
	if err != nil {
		return e.internalErr("2fa setup: verify code", err)
	}
	if !ok {
		return ErrInvalidCode
	}

	if err := e.users.SetTwoFactorSecret(ctx, u.ID, sess.PendingSecret); err != nil {
		return e.internalErr("2fa setup: persist secret", err)
	}

	if _, err := e.sessions.Update(ctx, sessionID, func(s *session.Session) error {
		s.PendingSecret = nil
		return nil
	}); err != nil && !errors.Is(err, redis.Nil) {
		return e.internalErr("2fa setup: clear pending secret", err)
	}

	e.log.Info("second factor configured", "user_id", u.ID)
	return nil
}

// VerifyTwoFactor checks a submitted code against the user's persisted
// secret and, on success, marks the session verified. Nothing is persisted
// on the user: the flag is per-session and must be re-earned after every
// login. Returns ErrSecondFactorNotConfigured when the user has no
// persisted secret, ErrInvalidCode on mismatch (no lockout).
func (e *Engine) VerifyTwoFactor(ctx context.Context, sessionID, code string) error {
	sess, err := e.liveSession(ctx, sessionID)
	if err != nil {
		return err
	}
	u, err := e.sessionUser(ctx, sess)
	if err != nil {
		return err
	}
	if len(u.TwoFactorSecret) == 0 {
		return ErrSecondFactorNotConfigured
	}

	ok, err := e.totp.VerifyCode(u.TwoFactorSecret, code, time.Now())
	if err != nil {
		return e.internalErr("2fa verify: verify code", err)
	}
	if !ok {
		return ErrInvalidCode
	}

	if _, err := e.sessions.Update(ctx, sessionID, func(s *session.Session) error {
		s.TwoFactorVerified = true
		return nil
	}); err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrUnauthenticated
		}
		return e.internalErr("2fa verify: mark session", err)
	}

	e.log.Info("second factor verified", "user_id", u.ID)
	return nil
}

// ChangeRole sets a user's role. The role must be inside the enumeration;
// ErrInvalidRole is reported before any store access and leaves the target
// unchanged. Whether the caller is allowed to do this is the role gate's
// concern, not ChangeRole's.
func (e *Engine) ChangeRole(ctx context.Context, targetUserID, role string) error {
	parsed, ok := users.ParseRole(role)
	if !ok {
		return ErrInvalidRole
	}
	if err := e.users.UpdateRole(ctx, targetUserID, parsed); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return ErrNotFound
		}
		return e.internalErr("change role", err)
	}
	e.log.Info("role changed", "user_id", targetUserID, "role", string(parsed))
	return nil
}

// Users lists every account, for the admin user list.
func (e *Engine) Users(ctx context.Context) ([]*users.User, error) {
	list, err := e.users.List(ctx)
	if err != nil {
		return nil, e.internalErr("list users", err)
	}
	return list, nil
}

// liveSession resolves a session ID to its live record. Missing and expired
// sessions are ErrUnauthenticated.
func (e *Engine) liveSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}
	sess, err := e.sessions.Get(ctx, sessionID, e.config.Session.Lifetime)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUnauthenticated
		}
		return nil, e.internalErr("load session", err)
	}
	return sess, nil
}

// sessionUser re-reads the session's user record. Reading per request (not
// caching the role in the session) means role changes and secret changes
// take effect on the next request. A session whose user no longer exists is
// treated as unauthenticated.
func (e *Engine) sessionUser(ctx context.Context, sess *session.Session) (*users.User, error) {
	u, err := e.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, e.internalErr("load session user", err)
	}
	return u, nil
}

// internalErr logs the cause and returns the generic ErrInternal. Callers
// never see storage details.
func (e *Engine) internalErr(op string, err error) error {
	e.log.Error("internal error", "op", op, "error", err)
	return ErrInternal
}
