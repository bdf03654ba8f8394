package internaldefs

import (
	goOTP "github.com/MrEthical07/goOTP"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   goOTP.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goOTP.MetricCodeGenerated, Name: "gootp_code_generated_total", Help: "Codes derived for running displays."},
	{ID: goOTP.MetricWindowRotated, Name: "gootp_window_rotated_total", Help: "Window changes observed by running displays."},
	{ID: goOTP.MetricSchedulerTick, Name: "gootp_scheduler_tick_total", Help: "Shared scheduler tick cycles."},
	{ID: goOTP.MetricDisplayStarted, Name: "gootp_display_started_total", Help: "Displays moved from idle to running."},
	{ID: goOTP.MetricDisplayStopped, Name: "gootp_display_stopped_total", Help: "Displays moved from running to idle."},
	{ID: goOTP.MetricInvalidSecret, Name: "gootp_invalid_secret_total", Help: "Operations rejected for an undecodable secret."},
	{ID: goOTP.MetricInvalidParameters, Name: "gootp_invalid_parameters_total", Help: "Operations rejected for unsupported digits, period or skew."},
	{ID: goOTP.MetricVerifySuccess, Name: "gootp_verify_success_total", Help: "Accepted code verifications."},
	{ID: goOTP.MetricVerifyFailure, Name: "gootp_verify_failure_total", Help: "Rejected code verifications."},
	{ID: goOTP.MetricVerifyReplay, Name: "gootp_verify_replay_total", Help: "Verifications rejected by replay protection."},
	{ID: goOTP.MetricVerifyRateLimited, Name: "gootp_verify_rate_limited_total", Help: "Verifications refused by the attempt limiter."},
	{ID: goOTP.MetricCodeCopied, Name: "gootp_code_copied_total", Help: "Codes handed to the clipboard."},
	{ID: goOTP.MetricCopyFailed, Name: "gootp_copy_failed_total", Help: "Clipboard hand-offs that failed."},
	{ID: goOTP.MetricRevealToggled, Name: "gootp_reveal_toggled_total", Help: "Reveal and mask toggles."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goOTP.MetricTickLatency, Name: "gootp_tick_latency_seconds", Help: "Time spent refreshing all running displays on one tick."},
}

// HistogramBounds are the upper bounds of the eight latency buckets in seconds.
var HistogramBounds = []string{
	"0.00005",
	"0.0001",
	"0.00025",
	"0.0005",
	"0.001",
	"0.005",
	"0.025",
	"+Inf",
}

// HistogramBoundSuffix mirrors HistogramBounds in a form usable inside
// instrument names.
var HistogramBoundSuffix = []string{
	"0_00005",
	"0_0001",
	"0_00025",
	"0_0005",
	"0_001",
	"0_005",
	"0_025",
	"inf",
}

const (
	AuditDroppedName = "gootp_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

	AuditDeliveredName = "gootp_audit_delivered_total"
	AuditDeliveredHelp = "Audit events handed to the sink."

	AuditSinkPanicsName = "gootp_audit_sink_panics_total"
	AuditSinkPanicsHelp = "Audit sink calls that panicked and were recovered."

	RunningDisplaysName = "gootp_running_displays"
	RunningDisplaysHelp = "Displays currently attached to the shared ticker."
)

// NormalizeBuckets copies raw into a fixed eight-slot array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form used by
// Prometheus le buckets.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
