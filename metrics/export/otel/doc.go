// Package otel provides OpenTelemetry metric exporter bindings for goOTP counters and
// histograms.
//
// [NewOTelExporter] registers an Int64ObservableCounter for each goOTP counter,
// an Int64ObservableGauge per histogram bucket and one for running displays. A single
// callback reads [goOTP.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
