// Package metrics provides lock-free counters and per-call backend latency
// histograms for finserve observability.
//
// # Design
//
// Counters are stored in cache-line-padded uint64 slots and incremented
// atomically via [sync/atomic.AddUint64]. Every backend call ([Op]) has its own
// latency histogram with 8 fixed buckets (≤100ms … +Inf) sized for the
// simulated call delays, so a slow register is not hidden behind fast logins. Both are
// allocation-free on the write path. A nil *Metrics is valid and records
// nothing.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshot creation. Metric export
// (Prometheus, OTel) lives in metrics/export/ and reads Snapshot values.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import finserve or any sibling package.
//   - Expose global metric registries.
package metrics
