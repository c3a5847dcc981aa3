// Package users defines the credential store: the user record, the Store
// interface the engine depends on, and two implementations (Postgres via
// pgx with embedded goose migrations, and an in-memory store for tests and
// examples).
package users
