package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	authgate "github.com/stockfolio/authgate"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by Protect.
func IdentityFromContext(ctx context.Context) (*authgate.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*authgate.Identity)
	return id, ok
}

// Config names the cookie and the pages gate denials redirect to.
type Config struct {
	CookieName    string
	LoginPath     string
	SetupPath     string
	VerifyPath    string
	DashboardPath string
	// SecureCookie marks the session cookie Secure. Leave false only for
	// local plain-HTTP development.
	SecureCookie bool
}

// DefaultConfig matches the example application's routes.
func DefaultConfig() Config {
	return Config{
		CookieName:    "ag_session",
		LoginPath:     "/login",
		SetupPath:     "/2fa/setup",
		VerifyPath:    "/2fa/verify",
		DashboardPath: "/dashboard",
	}
}

// Protect wraps a handler with the engine's gate chain. The session cookie
// is resolved to a session ID and Authorize runs with req; denials are
// routed per sentinel: unauthenticated to the login page, setup required to
// the setup page, verification required to the verify page, insufficient
// role to a bare 403. Anything else is a 500 with no detail. On admission
// the identity is injected into the request context.
func Protect(engine *authgate.Engine, cfg Config, req authgate.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := engine.Authorize(r.Context(), SessionID(engine, r, cfg), req)
			if err != nil {
				deny(w, r, cfg, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RedirectIfAuthenticated bounces already-authenticated browsers off pages
// like login and register to the dashboard. Anonymous requests pass
// through.
func RedirectIfAuthenticated(engine *authgate.Engine, cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := engine.Authorize(r.Context(), SessionID(engine, r, cfg), authgate.Requirement{AllowUnverified: true})
			if err == nil {
				http.Redirect(w, r, cfg.DashboardPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionID resolves the request's session ID from the signed cookie.
// Missing or invalid cookies resolve to the empty ID, which the gate treats
// as anonymous.
func SessionID(engine *authgate.Engine, r *http.Request, cfg Config) string {
	c, err := r.Cookie(cfg.CookieName)
	if err != nil {
		return ""
	}
	sid, err := engine.ParseToken(c.Value)
	if err != nil {
		return ""
	}
	return sid
}

// SetSessionCookie installs the signed session token on the browser.
func SetSessionCookie(w http.ResponseWriter, cfg Config, tokenValue string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    tokenValue,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, cfg Config) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func deny(w http.ResponseWriter, r *http.Request, cfg Config, err error) {
	switch {
	case errors.Is(err, authgate.ErrUnauthenticated):
		http.Redirect(w, r, cfg.LoginPath, http.StatusSeeOther)
	case errors.Is(err, authgate.ErrSecondFactorSetupRequired):
		http.Redirect(w, r, cfg.SetupPath, http.StatusSeeOther)
	case errors.Is(err, authgate.ErrSecondFactorRequired):
		http.Redirect(w, r, cfg.VerifyPath, http.StatusSeeOther)
	case errors.Is(err, authgate.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
