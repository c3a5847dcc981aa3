package authgate

import (
	"context"
	"errors"
	"testing"

	"github.com/stockfolio/authgate/users"
)

// verifiedLogin registers, logs in, completes setup, and verifies the
// session, returning the session ID and user ID.
func verifiedLogin(t *testing.T, engine *Engine, username, email string) (string, string) {
	t.Helper()
	ctx := context.Background()

	u, err := engine.Register(ctx, RegisterRequest{Username: username, Email: email, Password: "pw"})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	res, err := engine.Login(ctx, username, "pw")
	if err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	secret := completeSetup(t, engine, res.SessionID)
	if err := engine.VerifyTwoFactor(ctx, res.SessionID, currentCode(t, engine, secret)); err != nil {
		t.Fatalf("verify %s: %v", username, err)
	}
	return res.SessionID, u.ID
}

func TestGateDeniesAnonymous(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()

	for _, sid := range []string{"", "nonexistent"} {
		if _, err := engine.Authorize(context.Background(), sid, Requirement{}); !errors.Is(err, ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated for sid %q, got %v", sid, err)
		}
	}
}

// Gate ordering is a contract: an anonymous request against an admin-only
// operation is reported as unauthenticated, never as forbidden, and an
// unverified session is reported as needing its second factor before its
// role is ever considered.
func TestGateOrderContract(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	adminOnly := Requirement{MinRole: users.RoleAdmin}

	if _, err := engine.Authorize(ctx, "", adminOnly); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("anonymous + admin-only: expected ErrUnauthenticated, got %v", err)
	}

	registerAlice(t, engine)
	res, err := engine.Login(ctx, "alice", "pw123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if _, err := engine.Authorize(ctx, res.SessionID, adminOnly); !errors.Is(err, ErrSecondFactorSetupRequired) {
		t.Fatalf("no secret + admin-only: expected ErrSecondFactorSetupRequired, got %v", err)
	}

	completeSetup(t, engine, res.SessionID)
	if _, err := engine.Authorize(ctx, res.SessionID, adminOnly); !errors.Is(err, ErrSecondFactorRequired) {
		t.Fatalf("unverified + admin-only: expected ErrSecondFactorRequired, got %v", err)
	}
}

func TestGateRoleCheck(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	sid, uid := verifiedLogin(t, engine, "bob", "bob@x.com")

	adminOnly := Requirement{MinRole: users.RoleAdmin}
	editorOK := Requirement{MinRole: users.RoleEditor}

	if _, err := engine.Authorize(ctx, sid, adminOnly); !errors.Is(err, ErrForbidden) {
		t.Fatalf("editor on admin-only: expected ErrForbidden, got %v", err)
	}
	if _, err := engine.Authorize(ctx, sid, editorOK); err != nil {
		t.Fatalf("editor on editor operation: %v", err)
	}

	// Role changes take effect on the next request without a new session.
	if err := engine.ChangeRole(ctx, uid, "admin"); err != nil {
		t.Fatalf("change role: %v", err)
	}
	id, err := engine.Authorize(ctx, sid, adminOnly)
	if err != nil {
		t.Fatalf("admin on admin-only: %v", err)
	}
	if id.Role != users.RoleAdmin {
		t.Fatalf("expected admin identity, got %q", id.Role)
	}
	if _, err := engine.Authorize(ctx, sid, editorOK); err != nil {
		t.Fatalf("admin on editor operation: %v", err)
	}
}

func TestGateAllowUnverified(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	registerAlice(t, engine)
	res, err := engine.Login(ctx, "alice", "pw123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// The 2FA pages themselves must be reachable before verification.
	id, err := engine.Authorize(ctx, res.SessionID, Requirement{AllowUnverified: true})
	if err != nil {
		t.Fatalf("allow-unverified: %v", err)
	}
	if id.State != StateSetupRequired {
		t.Fatalf("expected StateSetupRequired, got %v", id.State)
	}

	if _, err := engine.Authorize(ctx, res.SessionID, Requirement{}); !errors.Is(err, ErrSecondFactorSetupRequired) {
		t.Fatalf("default requirement must still deny, got %v", err)
	}
}

func TestStateMachineProgression(t *testing.T) {
	engine, _, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	state, err := engine.StateOf(ctx, "")
	if err != nil || state != StateAnonymous {
		t.Fatalf("expected StateAnonymous, got %v err=%v", state, err)
	}

	registerAlice(t, engine)
	res, err := engine.Login(ctx, "alice", "pw123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if state, _ = engine.StateOf(ctx, res.SessionID); state != StateSetupRequired {
		t.Fatalf("after login without secret: expected StateSetupRequired, got %v", state)
	}

	secret := completeSetup(t, engine, res.SessionID)
	if state, _ = engine.StateOf(ctx, res.SessionID); state != StateVerifyRequired {
		t.Fatalf("after confirm: expected StateVerifyRequired, got %v", state)
	}

	if err := engine.VerifyTwoFactor(ctx, res.SessionID, currentCode(t, engine, secret)); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if state, _ = engine.StateOf(ctx, res.SessionID); state != StateVerified {
		t.Fatalf("after verify: expected StateVerified, got %v", state)
	}

	if err := engine.Logout(ctx, res.SessionID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if state, _ = engine.StateOf(ctx, res.SessionID); state != StateAnonymous {
		t.Fatalf("after logout: expected StateAnonymous, got %v", state)
	}
}

func TestSessionOfDeletedUserIsAnonymous(t *testing.T) {
	engine, store, done := newTestEngine(t)
	defer done()
	ctx := context.Background()

	sid, uid := verifiedLogin(t, engine, "carol", "carol@x.com")

	// Simulate out-of-band user removal: the session goes dark.
	store.Remove(uid)

	if _, err := engine.Authorize(ctx, sid, Requirement{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for orphaned session, got %v", err)
	}
}
