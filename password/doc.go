// Package password wraps bcrypt hashing and verification with a fixed work
// factor. Plaintext passwords are never logged or persisted.
package password
