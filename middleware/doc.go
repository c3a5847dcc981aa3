// Package middleware adapts the engine's authorization gate to net/http for
// server-rendered handlers: gate denials become redirects to the login,
// setup, or verify page, or a terminal 403 for insufficient role.
package middleware
