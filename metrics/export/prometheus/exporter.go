package prometheus

import (
	"fmt"
	"net/http"
	"strings"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/metrics/export/internaldefs"
)

const contentType = "text/plain; version=0.0.4; charset=utf-8"

type metricsSource interface {
	MetricsSnapshot() goOTP.MetricsSnapshot
	AuditStats() goOTP.AuditStats
	RunningDisplays() int
}

// PrometheusExporter renders goOTP metrics in Prometheus text exposition format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter creates a Prometheus exporter that reads from the given [goOTP.Engine].
func NewPrometheusExporter(engine *goOTP.Engine) *PrometheusExporter {
	return &PrometheusExporter{source: engine}
}

func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render on every request.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the exposition text. It is empty while the engine records
// nothing, i.e. with metrics disabled and no audit activity.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	audit := p.source.AuditStats()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 &&
		audit.Delivered == 0 && audit.Dropped == 0 && audit.SinkPanics == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(8192)
	for _, f := range internaldefs.Families(snapshot, audit, p.source.RunningDisplays()) {
		writeFamily(&b, f)
	}
	return b.String()
}

func writeFamily(b *strings.Builder, f internaldefs.Family) {
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", f.Name, escapeHelp(f.Help), f.Name, f.Kind)
	if f.Kind != internaldefs.KindHistogram {
		fmt.Fprintf(b, "%s %d\n", f.Name, f.Value)
		return
	}
	for i, le := range internaldefs.HistogramBounds {
		fmt.Fprintf(b, "%s_bucket{le=%q} %d\n", f.Name, le, f.Buckets[i])
	}
	fmt.Fprintf(b, "%s_count %d\n", f.Name, f.Value)
	// Snapshots carry bucket counts only.
	fmt.Fprintf(b, "%s_sum 0\n", f.Name)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(help string) string {
	return helpEscaper.Replace(help)
}
