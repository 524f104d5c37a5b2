package internaldefs

import (
	"sort"

	"github.com/MrEthical07/finserve"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   finserve.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: finserve.MetricLoginSuccess, Name: "finserve_login_success_total", Help: "Successful logins."},
	{ID: finserve.MetricLoginFailure, Name: "finserve_login_failure_total", Help: "Failed logins."},
	{ID: finserve.MetricLoginBusy, Name: "finserve_login_busy_total", Help: "Logins rejected because another auth call was in flight."},
	{ID: finserve.MetricLogout, Name: "finserve_logout_total", Help: "Logouts."},
	{ID: finserve.MetricLogoutBackendFailure, Name: "finserve_logout_backend_failure_total", Help: "Logouts whose backend call failed."},
	{ID: finserve.MetricSessionRestored, Name: "finserve_session_restored_total", Help: "Sessions restored from a persisted token."},
	{ID: finserve.MetricSessionRestoreFailure, Name: "finserve_session_restore_failure_total", Help: "Failed session restores."},
	{ID: finserve.MetricRegistrationSuccess, Name: "finserve_registration_success_total", Help: "Successful registrations."},
	{ID: finserve.MetricRegistrationDuplicate, Name: "finserve_registration_duplicate_total", Help: "Registrations rejected as duplicate email."},
	{ID: finserve.MetricRegistrationFailure, Name: "finserve_registration_failure_total", Help: "Failed registrations."},
	{ID: finserve.MetricProfileUpdateSuccess, Name: "finserve_profile_update_success_total", Help: "Successful profile updates."},
	{ID: finserve.MetricProfileUpdateFailure, Name: "finserve_profile_update_failure_total", Help: "Failed profile updates."},
	{ID: finserve.MetricOnboardingStepAdvanced, Name: "finserve_onboarding_step_advanced_total", Help: "Wizard steps that passed validation."},
	{ID: finserve.MetricOnboardingStepRejected, Name: "finserve_onboarding_step_rejected_total", Help: "Wizard steps rejected by validation."},
	{ID: finserve.MetricOnboardingCompleted, Name: "finserve_onboarding_completed_total", Help: "Completed onboarding submissions."},
	{ID: finserve.MetricOnboardingFailed, Name: "finserve_onboarding_failed_total", Help: "Failed onboarding submissions."},
	{ID: finserve.MetricFinancialFetchSuccess, Name: "finserve_financial_fetch_success_total", Help: "Successful financial data fetches."},
	{ID: finserve.MetricFinancialFetchFailure, Name: "finserve_financial_fetch_failure_total", Help: "Financial data fetches that failed after retries."},
	{ID: finserve.MetricFinancialCacheHit, Name: "finserve_financial_cache_hit_total", Help: "Financial data reads served from cache."},
	{ID: finserve.MetricFinancialRefreshSuccess, Name: "finserve_financial_refresh_success_total", Help: "Successful financial data refreshes."},
	{ID: finserve.MetricFinancialRefreshFailure, Name: "finserve_financial_refresh_failure_total", Help: "Failed financial data refreshes."},
}

// Backend latency is one histogram family labelled by op.
const (
	BackendLatencyName = "finserve_backend_latency_seconds"
	BackendLatencyHelp = "Simulated backend call latency by operation."
)

// Session state is exported as a state set: one series per state, 1 for the
// current one.
const (
	SessionStateName = "finserve_session_state"
	SessionStateHelp = "Current session lifecycle state (1 for the active state)."
)

// Audit accounting is one counter family labelled by event type and outcome.
const (
	AuditEventsName  = "finserve_audit_events_total"
	AuditEventsHelp  = "Audit events by type and what became of them."
	AuditDroppedName = "finserve_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// AuditOutcome is one column of finserve.AuditStats.
type AuditOutcome struct {
	Label string
	Value func(finserve.AuditStats) uint64
}

var AuditOutcomes = []AuditOutcome{
	{Label: "delivered", Value: func(s finserve.AuditStats) uint64 { return s.Delivered }},
	{Label: "dropped", Value: func(s finserve.AuditStats) uint64 { return s.Dropped }},
	{Label: "abandoned", Value: func(s finserve.AuditStats) uint64 { return s.Abandoned }},
}

// SortedAuditTypes returns the event types of stats in lexical order.
func SortedAuditTypes(stats map[string]finserve.AuditStats) []string {
	out := make([]string, 0, len(stats))
	for k := range stats {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// TotalDropped sums Dropped across event types.
func TotalDropped(stats map[string]finserve.AuditStats) uint64 {
	var n uint64
	for _, s := range stats {
		n += s.Dropped
	}
	return n
}

// HistogramBounds are the upper bounds of the backend latency buckets.
var HistogramBounds = []string{
	"0.1",
	"0.25",
	"0.5",
	"1",
	"1.5",
	"2",
	"5",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds spelled for instrument names.
var HistogramBoundSuffix = []string{
	"0_1",
	"0_25",
	"0_5",
	"1",
	"1_5",
	"2",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling short input.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
