// Package portfolio caches the financial snapshot shown on the dashboard.
//
// [Tracker.Load] serves the cached snapshot while it is fresh and otherwise
// fetches it with a small bounded retry. [Tracker.Refresh] asks the backend
// for a recomputed snapshot and replaces the cache on success; a failed
// refresh keeps the last good snapshot.
//
// Concurrent loads and refreshes are not ordered: whichever call completes
// last owns the cache.
package portfolio
