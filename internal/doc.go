// Package internal holds helpers private to finserve: random sources for
// token keys and for the simulated backend's failure injection.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - metrics — lock-free counters and the backend latency histogram
//
// # What this package must NOT do
//
//   - Export types that appear in the public finserve API.
package internal
