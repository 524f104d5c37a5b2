package backend

import "errors"

var (
	// ErrInvalidCredentials is returned when no account matches an email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail is returned when registering an email that already exists.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrDataFetch is the injected, retryable financial data failure.
	ErrDataFetch = errors.New("failed to fetch financial data")
)

const (
	MessageLoginSuccess        = "Login successful"
	MessageLogoutSuccess       = "Logged out successfully"
	MessageRegistrationSuccess = "Registration successful"
	MessageUserUpdated         = "User updated successfully"
	MessageFinancialRefreshed  = "Financial data refreshed successfully"
)
