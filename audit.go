package finserve

import (
	"io"

	"github.com/MrEthical07/finserve/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is one audit record emitted by the client core.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// AuditStats records what became of the audit events of one type.
type AuditStats = audit.TypeStats

type (
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LoggerSink     = audit.LoggerSink
)

const (
	AuditLoginSuccess          = audit.EventLoginSuccess
	AuditLoginFailure          = audit.EventLoginFailure
	AuditLogout                = audit.EventLogout
	AuditSessionRestored       = audit.EventSessionRestored
	AuditSessionRestoreFailure = audit.EventSessionRestoreFailure
	AuditRegistrationSuccess   = audit.EventRegistrationSuccess
	AuditRegistrationFailure   = audit.EventRegistrationFailure
	AuditProfileUpdated        = audit.EventProfileUpdated
	AuditProfileUpdateFailure  = audit.EventProfileUpdateFailure
	AuditOnboardingCompleted   = audit.EventOnboardingCompleted
	AuditOnboardingFailed      = audit.EventOnboardingFailed
)

// NewChannelSink returns a sink whose events are read from Events().
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink writes one JSON object per event to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewLoggerSink logs successes at info and failures at warn.
func NewLoggerSink(logger *zap.Logger) *LoggerSink {
	return audit.NewLoggerSink(logger)
}

// AuditDropped returns how many audit events were dropped because the
// dispatcher buffer was full.
func (c *Client) AuditDropped() uint64 {
	return c.audit.Dropped()
}

// AuditStats returns delivery accounting keyed by audit event type. It is
// empty when auditing is disabled.
func (c *Client) AuditStats() map[string]AuditStats {
	return c.audit.Stats()
}
