// Package finserve is the client core of the FinServe demo: session and
// authentication lifecycle, the three-step onboarding wizard with its
// validation pipeline, and the financial dashboard data layer, all driven by
// a simulated backend.
//
// The package is the public surface. It exposes [Client], [Builder] and
// [Config]; the domain logic lives in sub-packages:
//
//   - validation — declarative step schemas and one generic evaluator
//   - backend    — the mock backend service (latency, failure injection, seed account)
//   - session    — current-user state, token persistence, login/logout/restore
//   - onboarding — the wizard state machine that ends in a registration
//   - portfolio  — cached financial snapshot with bounded retry
//   - storage    — the local-storage stand-in (memory or Redis)
//
// Client methods are safe to call from multiple goroutines after [Builder.Build].
//
// # What this package must NOT do
//
//   - Render anything; callers own presentation.
//   - Treat the persisted token or the registered-user list as secrets. Both
//     are plain records, exactly like the browser store they replace.
//   - Import any sub-package that re-imports finserve (no import cycles).
package finserve
