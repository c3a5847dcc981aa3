package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authgate "github.com/stockfolio/authgate"
	"github.com/stockfolio/authgate/users"
)

func newGuardTest(t *testing.T) (*authgate.Engine, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	engine, err := authgate.New().
		WithRedis(rdb).
		WithUserStore(users.NewMemoryStore()).
		WithTokenSecret([]byte("0123456789abcdef0123456789abcdef")).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	return engine, func() {
		rdb.Close()
		mr.Close()
	}
}

// loginToken registers a user and returns the signed cookie value for a
// fresh (unverified) session.
func loginToken(t *testing.T, engine *authgate.Engine, username, email string) string {
	t.Helper()
	ctx := context.Background()
	if _, err := engine.Register(ctx, authgate.RegisterRequest{
		Username: username, Email: email, Password: "pw",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	res, err := engine.Login(ctx, username, "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return res.Token
}

func protectedRequest(engine *authgate.Engine, req authgate.Requirement, cookie string) *httptest.ResponseRecorder {
	cfg := DefaultConfig()
	handler := Protect(engine, cfg, req)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: cookie})
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestProtectRedirectsAnonymousToLogin(t *testing.T) {
	engine, done := newGuardTest(t)
	defer done()

	for name, cookie := range map[string]string{
		"no cookie":  "",
		"bad cookie": "garbage",
	} {
		w := protectedRequest(engine, authgate.Requirement{}, cookie)
		if w.Code != http.StatusSeeOther {
			t.Fatalf("%s: expected 303, got %d", name, w.Code)
		}
		if loc := w.Header().Get("Location"); loc != "/login" {
			t.Fatalf("%s: expected redirect to /login, got %q", name, loc)
		}
	}
}

func TestProtectRedirectsUnverifiedToSetupOrVerify(t *testing.T) {
	engine, done := newGuardTest(t)
	defer done()

	cookie := loginToken(t, engine, "alice", "alice@x.com")

	w := protectedRequest(engine, authgate.Requirement{}, cookie)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/2fa/setup" {
		t.Fatalf("no secret yet: expected redirect to /2fa/setup, got %q", loc)
	}
}

func TestProtectForbidsInsufficientRole(t *testing.T) {
	engine, done := newGuardTest(t)
	defer done()

	cookie := loginToken(t, engine, "alice", "alice@x.com")

	// The 2FA pages accept unverified sessions; the admin requirement on
	// top of that still terminates with 403, not a redirect.
	w := protectedRequest(engine, authgate.Requirement{AllowUnverified: true, MinRole: users.RoleAdmin}, cookie)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "" {
		t.Fatalf("forbidden must not redirect, got %q", loc)
	}
}

func TestProtectAdmitsAndInjectsIdentity(t *testing.T) {
	engine, done := newGuardTest(t)
	defer done()

	cookie := loginToken(t, engine, "alice", "alice@x.com")
	cfg := DefaultConfig()

	var got *authgate.Identity
	handler := Protect(engine, cfg, authgate.Requirement{AllowUnverified: true})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, _ = IdentityFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	r := httptest.NewRequest(http.MethodGet, "/2fa/setup", nil)
	r.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: cookie})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got == nil || got.Username != "alice" || got.State != authgate.StateSetupRequired {
		t.Fatalf("unexpected identity %+v", got)
	}
}

func TestRedirectIfAuthenticated(t *testing.T) {
	engine, done := newGuardTest(t)
	defer done()

	cfg := DefaultConfig()
	handler := RedirectIfAuthenticated(engine, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Anonymous passes through to the login form.
	r := httptest.NewRequest(http.MethodGet, "/login", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous: expected 200, got %d", w.Code)
	}

	// Logged-in browsers bounce to the dashboard.
	cookie := loginToken(t, engine, "alice", "alice@x.com")
	r = httptest.NewRequest(http.MethodGet, "/login", nil)
	r.AddCookie(&http.Cookie{Name: cfg.CookieName, Value: cookie})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusSeeOther {
		t.Fatalf("authenticated: expected 303, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != cfg.DashboardPath {
		t.Fatalf("expected redirect to %q, got %q", cfg.DashboardPath, loc)
	}
}

func TestSessionCookieHelpers(t *testing.T) {
	cfg := DefaultConfig()

	w := httptest.NewRecorder()
	SetSessionCookie(w, cfg, "tok", time.Hour)
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != cfg.CookieName || c.Value != "tok" || !c.HttpOnly || c.MaxAge != 3600 {
		t.Fatalf("unexpected cookie %+v", c)
	}

	w = httptest.NewRecorder()
	ClearSessionCookie(w, cfg)
	cookies = w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expired cookie, got %+v", cookies)
	}
}
