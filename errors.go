package finserve

import (
	"errors"

	"github.com/MrEthical07/finserve/backend"
	"github.com/MrEthical07/finserve/onboarding"
	"github.com/MrEthical07/finserve/portfolio"
	"github.com/MrEthical07/finserve/session"
	"github.com/MrEthical07/finserve/validation"
)

var (
	// ErrInvalidCredentials is returned by Login when no account matches.
	ErrInvalidCredentials = backend.ErrInvalidCredentials
	// ErrDuplicateEmail is returned by registration for an existing email.
	ErrDuplicateEmail = backend.ErrDuplicateEmail
	// ErrDataFetch is the retryable financial data failure.
	ErrDataFetch = backend.ErrDataFetch
	// ErrValidation matches every field-scoped validation error.
	ErrValidation = validation.ErrValidation
	// ErrBusy is returned while another login, logout or registration runs.
	ErrBusy = session.ErrBusy
	// ErrNotAuthenticated is returned by operations that need a signed-in user.
	ErrNotAuthenticated = session.ErrNotAuthenticated
	// ErrSessionRestore wraps the cause of a failed startup restore.
	ErrSessionRestore = session.ErrSessionRestore
	// ErrStepsIncomplete is returned by a submit attempted before steps one and two passed.
	ErrStepsIncomplete = onboarding.ErrStepsIncomplete
	// ErrSubmitInProgress is returned while an onboarding submission is outstanding.
	ErrSubmitInProgress = onboarding.ErrSubmitInProgress
	// ErrPortfolioClosed is returned by dashboard calls that complete after Close.
	ErrPortfolioClosed = portfolio.ErrClosed

	// ErrClientNotReady is returned by operations called before Start.
	ErrClientNotReady = errors.New("client not started")
	// ErrClientClosed is returned once Close has been called.
	ErrClientClosed = errors.New("client closed")
)
