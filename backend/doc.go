// Package backend simulates the remote service the client talks to.
//
// Every operation sleeps a fixed artificial latency before resolving. The only
// durable state is the append-only registered-user list kept in a
// [storage.Local]; everything else is a fixed dataset.
//
// # Observed contract kept on purpose
//
//   - One seed account (demo@finserve.com / demo123) always authenticates and
//     is never written to the registered-user list.
//   - GetCurrentUser returns the demo profile for whoever holds a token, and
//     UpdateUser merges onto that same profile.
//   - GetFinancialData fails at random (10% by default); RefreshFinancialData
//     never fails.
//   - Duplicate registration is only rejected for the seed email unless
//     [DuplicateAny] is configured.
//
// Passwords are stored and compared in plain text. This package is a test
// double, not a credential store.
package backend
