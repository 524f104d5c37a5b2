// Package storage provides the persisted client state used by the session
// manager and the mock backend: a string slot per key plus append-only lists.
//
// # Well-known keys
//
// [KeyToken] holds the opaque session token. [KeyRegisteredUsers] holds the
// append-only registered-user list. Values are plain serialized records and
// are not protected in any way.
//
// # Implementations
//
// [Memory] is a process-scoped map guarded by a mutex. [Redis] namespaces the
// same keys under a prefix and relies on RPUSH for atomic appends, so
// concurrent registrations never lose an entry.
package storage
