package finserve

import (
	"github.com/MrEthical07/finserve/internal/metrics"
	"github.com/MrEthical07/finserve/session"
)

// MetricID identifies one counter of a Client.
type MetricID = metrics.ID

// BackendOp names one backend call. Each has its own latency histogram in
// MetricsSnapshot.BackendLatency.
type BackendOp = metrics.Op

// SessionState is the session lifecycle state reported by Client.SessionState.
type SessionState = session.State

// MetricsSnapshot is a point-in-time copy of every metric value.
type MetricsSnapshot = metrics.Snapshot

const (
	MetricLoginSuccess            = metrics.LoginSuccess
	MetricLoginFailure            = metrics.LoginFailure
	MetricLoginBusy               = metrics.LoginBusy
	MetricLogout                  = metrics.Logout
	MetricLogoutBackendFailure    = metrics.LogoutBackendFailure
	MetricSessionRestored         = metrics.SessionRestored
	MetricSessionRestoreFailure   = metrics.SessionRestoreFailure
	MetricRegistrationSuccess     = metrics.RegistrationSuccess
	MetricRegistrationDuplicate   = metrics.RegistrationDuplicate
	MetricRegistrationFailure     = metrics.RegistrationFailure
	MetricProfileUpdateSuccess    = metrics.ProfileUpdateSuccess
	MetricProfileUpdateFailure    = metrics.ProfileUpdateFailure
	MetricOnboardingStepAdvanced  = metrics.OnboardingStepAdvanced
	MetricOnboardingStepRejected  = metrics.OnboardingStepRejected
	MetricOnboardingCompleted     = metrics.OnboardingCompleted
	MetricOnboardingFailed        = metrics.OnboardingFailed
	MetricFinancialFetchSuccess   = metrics.FinancialFetchSuccess
	MetricFinancialFetchFailure   = metrics.FinancialFetchFailure
	MetricFinancialCacheHit       = metrics.FinancialCacheHit
	MetricFinancialRefreshSuccess = metrics.FinancialRefreshSuccess
	MetricFinancialRefreshFailure = metrics.FinancialRefreshFailure
)

const (
	BackendOpAuthenticate         = metrics.OpAuthenticate
	BackendOpLogout               = metrics.OpLogout
	BackendOpRegister             = metrics.OpRegister
	BackendOpCurrentUser          = metrics.OpCurrentUser
	BackendOpUpdateUser           = metrics.OpUpdateUser
	BackendOpFinancialData        = metrics.OpFinancialData
	BackendOpRefreshFinancialData = metrics.OpRefreshFinancialData
)

// BackendOps lists every backend call in a stable order.
func BackendOps() []BackendOp {
	return metrics.Ops()
}

// SessionStates lists every session state in a stable order.
func SessionStates() []SessionState {
	return []SessionState{
		session.Uninitialized,
		session.Restoring,
		session.Authenticated,
		session.Anonymous,
		session.Authenticating,
	}
}

// MetricsSnapshot returns the current metric values. With metrics disabled
// both maps are empty.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// SessionState reports where the session lifecycle currently stands.
func (c *Client) SessionState() SessionState {
	return c.session.State()
}
