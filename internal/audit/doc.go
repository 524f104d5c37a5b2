// Package audit implements async event dispatching for session and onboarding
// transitions.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, zap logger, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics
//     and per-event-type delivered/dropped/abandoned accounting ([Dispatcher.Stats]).
//   - [Event] — structured audit record with timestamp, type, user, outcome and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the session manager and onboarding wizard do.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import finserve or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
