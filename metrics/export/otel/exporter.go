package otel

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/finserve"
	"github.com/MrEthical07/finserve/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() finserve.MetricsSnapshot
	AuditStats() map[string]finserve.AuditStats
	SessionState() finserve.SessionState
}

type observedCounter struct {
	id         finserve.MetricID
	instrument metric.Int64ObservableCounter
}

// opSeries is the attribute set for one backend call's latency series.
type opSeries struct {
	op    finserve.BackendOp
	attrs metric.MeasurementOption
}

type stateSeries struct {
	state finserve.SessionState
	attrs metric.MeasurementOption
}

// OTelExporter observes a client's counters, per-call latency histograms,
// session state and audit accounting on every collection cycle.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter

	latencyBuckets [8]metric.Int64ObservableGauge
	latencyCount   metric.Int64ObservableGauge
	ops            []opSeries

	sessionState metric.Int64ObservableGauge
	states       []stateSeries

	auditEvents  metric.Int64ObservableCounter
	auditDropped metric.Int64ObservableCounter
}

// NewOTelExporter registers the client's instruments on meter. Close
// unregisters them.
func NewOTelExporter(meter metric.Meter, client *finserve.Client) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, client)
}

// NewOTelExporterFromSource registers instruments over a custom source.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make([]observedCounter, 0, len(internaldefs.CounterDefs)),
	}
	for _, op := range finserve.BackendOps() {
		e.ops = append(e.ops, opSeries{
			op:    op,
			attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("op", op.String()))),
		})
	}
	for _, st := range finserve.SessionStates() {
		e.states = append(e.states, stateSeries{
			state: st,
			attrs: metric.WithAttributeSet(attribute.NewSet(attribute.String("state", st.String()))),
		})
	}

	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+len(e.latencyBuckets)+4)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help))
		if err != nil {
			return nil, fmt.Errorf("create observable counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, observedCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := internaldefs.BackendLatencyName + "_bucket_le_" + suffix
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription("Cumulative backend latency bucket count by op."))
		if err != nil {
			return nil, fmt.Errorf("create latency bucket gauge %s: %w", name, err)
		}
		e.latencyBuckets[i] = ins
		observables = append(observables, ins)
	}
	countName := internaldefs.BackendLatencyName + "_count"
	count, err := meter.Int64ObservableGauge(countName, metric.WithDescription("Backend calls observed by op."))
	if err != nil {
		return nil, fmt.Errorf("create latency count gauge %s: %w", countName, err)
	}
	e.latencyCount = count
	observables = append(observables, count)

	state, err := meter.Int64ObservableGauge(internaldefs.SessionStateName, metric.WithDescription(internaldefs.SessionStateHelp))
	if err != nil {
		return nil, fmt.Errorf("create session state gauge: %w", err)
	}
	e.sessionState = state
	observables = append(observables, state)

	events, err := meter.Int64ObservableCounter(internaldefs.AuditEventsName, metric.WithDescription(internaldefs.AuditEventsHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit events counter: %w", err)
	}
	e.auditEvents = events
	observables = append(observables, events)

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName, metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snapshot := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.instrument, int64(snapshot.Counters[c.id]))
	}

	// Histograms are absent while latency recording is off.
	if len(snapshot.BackendLatency) > 0 {
		for _, s := range e.ops {
			cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snapshot.BackendLatency[s.op]))
			for i := range cumulative {
				o.ObserveInt64(e.latencyBuckets[i], int64(cumulative[i]), s.attrs)
			}
			o.ObserveInt64(e.latencyCount, int64(cumulative[len(cumulative)-1]), s.attrs)
		}
	}

	current := e.source.SessionState()
	for _, s := range e.states {
		var v int64
		if s.state == current {
			v = 1
		}
		o.ObserveInt64(e.sessionState, v, s.attrs)
	}

	stats := e.source.AuditStats()
	for _, eventType := range internaldefs.SortedAuditTypes(stats) {
		for _, outcome := range internaldefs.AuditOutcomes {
			o.ObserveInt64(e.auditEvents, int64(outcome.Value(stats[eventType])), metric.WithAttributes(
				attribute.String("type", eventType),
				attribute.String("outcome", outcome.Label),
			))
		}
	}
	o.ObserveInt64(e.auditDropped, int64(internaldefs.TotalDropped(stats)))
	return nil
}

func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
