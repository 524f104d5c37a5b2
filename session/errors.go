package session

import "errors"

var (
	// ErrBusy is returned when another login, logout, or registration is in flight.
	ErrBusy = errors.New("session operation in progress")
	// ErrClosed is returned once the manager has been detached.
	ErrClosed = errors.New("session manager closed")
	// ErrNotAuthenticated is returned by operations that need a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionChanged is returned when the session was replaced while a
	// profile update was in flight; the update result is discarded.
	ErrSessionChanged = errors.New("session changed during update")
	// ErrSessionRestore wraps the cause of a failed startup restore.
	ErrSessionRestore = errors.New("session restore failed")
)
