// Package session implements the Redis-backed session store. A session ties
// one browser to at most one user and carries the two transient second-factor
// fields: the pending secret generated during setup and the per-session
// verified flag. Records are stored as a compact versioned binary blob.
package session
