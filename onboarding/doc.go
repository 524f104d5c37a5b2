// Package onboarding drives the three-step account creation wizard.
//
// A [Wizard] holds one draft per step, refuses to advance past a step whose
// draft fails validation, and finally aggregates the drafts into a single
// registration submitted through a [Registrar].
//
//	PersonalInfo -> RiskProfile -> Preferences -> Submitting -> Completed | Failed
//
// Going back never discards a draft. A failed submission keeps every draft so
// the user can correct the offending data and resubmit.
package onboarding
