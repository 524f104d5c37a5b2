// Package profile defines the user profile model shared by the mock backend,
// the session manager and the onboarding wizard.
//
// # Architecture boundaries
//
// profile is a leaf package: it holds value types, the fixed investment goal
// catalog and the seed demo profile. It performs no I/O and imports nothing
// from the rest of the module.
package profile
