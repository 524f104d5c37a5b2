package storage

import (
	"context"
	"errors"
)

const (
	KeyToken           = "finserve_token"
	KeyRegisteredUsers = "finserve_registered_users"
)

// ErrUnavailable wraps transport failures from a remote store.
var ErrUnavailable = errors.New("storage unavailable")

// Local is the key/value surface the client persists state through.
//
// Get reports ok=false for a missing key. Append adds one element to the list
// stored at key atomically with respect to concurrent appends.
type Local interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Append(ctx context.Context, key, value string) error
	List(ctx context.Context, key string) ([]string, error)
}
