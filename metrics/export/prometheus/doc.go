// Package prometheus renders goOTP metrics in Prometheus text exposition format.
//
// [NewPrometheusExporter] accepts a [goOTP.Engine] and exposes an [http.Handler].
// Counter names are prefixed gootp_*_total; the single histogram is
// gootp_tick_latency_seconds and gootp_running_displays is a gauge.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
