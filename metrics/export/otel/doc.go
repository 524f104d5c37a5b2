// Package otel exposes finserve client metrics through OpenTelemetry.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter, one
// Int64ObservableGauge per latency bucket observed once per backend call with
// an "op" attribute, a "finserve_session_state" gauge with a "state"
// attribute, and audit accounting with "type" and "outcome" attributes. A
// single callback reads the client on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
