// Package validation implements the per-step onboarding validation engine.
//
// Each onboarding step is described by a [Schema]: an ordered list of fields,
// each carrying constraint descriptors ([Rule]). A single evaluator interprets
// every schema, so step rules stay data rather than code.
//
// # Contract
//
// [Engine.Validate] never returns an error for malformed user input. Input
// problems come back as a [Result] holding a field→message mapping. Errors are
// reserved for programmer mistakes ([ErrUnknownStep]) and context cancellation;
// the context parameter keeps the call shape stable for rules that may later
// need to suspend.
package validation
