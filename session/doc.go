// Package session owns the authenticated-user state of one client.
//
// A [Manager] restores a persisted token at startup, performs login, logout
// and registration against a [Backend], and exposes the current user and
// token to the rest of the client.
//
// # State machine
//
//	Uninitialized -> Restoring -> Authenticated | Anonymous | Uninitialized (ctx ended)
//	Anonymous     -> Authenticating -> Authenticated | Anonymous
//	Authenticated -> Authenticating -> Authenticated (login, either outcome)
//	Authenticated -> Authenticating -> Anonymous (logout)
//
// A failed login restores the state it started from; only logout clears a
// signed-in session.
//
// IsAuthenticated is derived from the presence of a user, never stored
// separately.
//
// # Architecture boundaries
//
// This package owns the token slot in [storage.Local] and the in-memory user.
// It does NOT validate onboarding drafts or cache financial data.
//
// # What this package must NOT do
//
//   - Import finserve, onboarding, or portfolio (no upward imports).
//   - Return restore failures to the caller; a broken token only demotes the
//     session to Anonymous.
//   - Run two login, logout, or registration calls at the same time.
package session
