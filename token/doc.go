// Package token issues the opaque session tokens handed out by the mock
// backend.
//
// Tokens are signed JWTs so they stay structurally verifiable in tests, but
// callers must treat them as opaque strings: the session manager only stores
// and forwards them.
package token
