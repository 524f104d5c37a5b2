package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/finserve"
	"github.com/MrEthical07/finserve/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() finserve.MetricsSnapshot
	AuditStats() map[string]finserve.AuditStats
	SessionState() finserve.SessionState
}

// PrometheusExporter renders finserve metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [finserve.Client].
func NewPrometheusExporter(client *finserve.Client) *PrometheusExporter {
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource creates a Prometheus exporter from a
// custom metrics source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current metrics in Prometheus text exposition format.
// Output is empty while metrics are disabled and no audit event was seen.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	stats := p.source.AuditStats()
	if len(snapshot.Counters) == 0 && len(snapshot.BackendLatency) == 0 && len(stats) == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)

	for _, def := range internaldefs.CounterDefs {
		writeHeader(&b, def.Name, def.Help, "counter")
		writeSample(&b, def.Name, "", snapshot.Counters[def.ID])
	}

	if len(snapshot.BackendLatency) > 0 {
		writeLatency(&b, snapshot.BackendLatency)
	}

	writeSessionState(&b, p.source.SessionState())

	writeHeader(&b, internaldefs.AuditEventsName, internaldefs.AuditEventsHelp, "counter")
	for _, eventType := range internaldefs.SortedAuditTypes(stats) {
		for _, outcome := range internaldefs.AuditOutcomes {
			labels := `type="` + escapeLabel(eventType) + `",outcome="` + outcome.Label + `"`
			writeSample(&b, internaldefs.AuditEventsName, labels, outcome.Value(stats[eventType]))
		}
	}
	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	writeSample(&b, internaldefs.AuditDroppedName, "", internaldefs.TotalDropped(stats))

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

func writeSample(b *strings.Builder, name, labels string, value uint64) {
	b.WriteString(name)
	if labels != "" {
		b.WriteByte('{')
		b.WriteString(labels)
		b.WriteByte('}')
	}
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}

// writeLatency renders one histogram family with a series per backend op.
func writeLatency(b *strings.Builder, latency map[finserve.BackendOp][]uint64) {
	name := internaldefs.BackendLatencyName
	writeHeader(b, name, internaldefs.BackendLatencyHelp, "histogram")

	for _, op := range finserve.BackendOps() {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(latency[op]))
		opLabel := `op="` + op.String() + `"`
		for i, le := range internaldefs.HistogramBounds {
			writeSample(b, name+"_bucket", opLabel+`,le="`+le+`"`, cumulative[i])
		}
		writeSample(b, name+"_count", opLabel, cumulative[len(cumulative)-1])
		// Snapshots carry no sum.
		writeSample(b, name+"_sum", opLabel, 0)
	}
}

func writeSessionState(b *strings.Builder, current finserve.SessionState) {
	name := internaldefs.SessionStateName
	writeHeader(b, name, internaldefs.SessionStateHelp, "gauge")
	for _, st := range finserve.SessionStates() {
		var v uint64
		if st == current {
			v = 1
		}
		writeSample(b, name, `state="`+st.String()+`"`, v)
	}
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabel(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\n", "\\n")
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}
