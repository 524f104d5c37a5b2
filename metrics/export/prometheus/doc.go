// Package prometheus renders finserve client metrics in Prometheus text
// exposition format.
//
// Counter names are prefixed finserve_*_total. finserve_backend_latency_seconds
// carries one series per backend call under an op label,
// finserve_session_state is a state set, and finserve_audit_events_total splits
// audit delivery by event type and outcome.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate client state.
package prometheus
