package goOTP

import (
	"fmt"
	"io"

	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	internalmetrics "github.com/MrEthical07/goOTP/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ItemKind is the closed set of vault item kinds that can show a rolling code.
// Kinds differ only in whether digits/period overrides are honored.
type ItemKind uint8

const (
	// ItemLogin is a login item with an attached TOTP secret; it always uses
	// the RFC 6238 defaults.
	ItemLogin ItemKind = iota
	// ItemAuthenticator is a dedicated authenticator entry whose digits and
	// period may be overridden (e.g. imported from an otpauth URI).
	ItemAuthenticator
)

func (k ItemKind) String() string {
	switch k {
	case ItemLogin:
		return "login"
	case ItemAuthenticator:
		return "authenticator"
	default:
		return fmt.Sprintf("ItemKind(%d)", uint8(k))
	}
}

// ParseItemKind maps a stored kind name to an ItemKind.
func ParseItemKind(s string) (ItemKind, error) {
	switch s {
	case "", "login":
		return ItemLogin, nil
	case "authenticator", "otp", "totp":
		return ItemAuthenticator, nil
	default:
		return 0, fmt.Errorf("%w: unknown item kind %q", ErrInvalidParameters, s)
	}
}

// Params resolves the effective time-step configuration for an item of this
// kind against the package defaults. Login items ignore override;
// authenticator items validate it. Engine.Params does the same against the
// engine's configured defaults.
func (k ItemKind) Params(override Params) (Params, error) {
	return k.paramsWith(DefaultParams(), override)
}

func (k ItemKind) paramsWith(defaults Params, override Params) (Params, error) {
	switch k {
	case ItemLogin:
		return defaults, nil
	case ItemAuthenticator:
		if override.Digits == 0 {
			override.Digits = defaults.Digits
		}
		if override.Period == 0 {
			override.Period = defaults.Period
		}
		if err := override.Validate(); err != nil {
			return Params{}, err
		}
		return override, nil
	default:
		return Params{}, fmt.Errorf("%w: unknown item kind %d", ErrInvalidParameters, uint8(k))
	}
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// LogrusSink is an [AuditSink] that writes events as structured log entries.
type LogrusSink = internalaudit.LogrusSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogrusSink creates a [LogrusSink]; a nil logger selects the standard logger.
func NewLogrusSink(log logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(log)
}

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricCodeGenerated counts code derivations performed for displays.
	MetricCodeGenerated = MetricID(internalmetrics.MetricCodeGenerated)
	// MetricWindowRotated counts window changes observed by running displays.
	MetricWindowRotated = MetricID(internalmetrics.MetricWindowRotated)
	// MetricSchedulerTick counts scheduler tick cycles.
	MetricSchedulerTick = MetricID(internalmetrics.MetricSchedulerTick)
	// MetricDisplayStarted counts Idle to Running transitions.
	MetricDisplayStarted = MetricID(internalmetrics.MetricDisplayStarted)
	// MetricDisplayStopped counts Running to Idle transitions.
	MetricDisplayStopped = MetricID(internalmetrics.MetricDisplayStopped)
	// MetricInvalidSecret counts rejections with ErrInvalidSecret.
	MetricInvalidSecret = MetricID(internalmetrics.MetricInvalidSecret)
	// MetricInvalidParameters counts rejections with ErrInvalidParameters.
	MetricInvalidParameters = MetricID(internalmetrics.MetricInvalidParameters)
	// MetricVerifySuccess counts accepted codes.
	MetricVerifySuccess = MetricID(internalmetrics.MetricVerifySuccess)
	// MetricVerifyFailure counts rejected codes.
	MetricVerifyFailure = MetricID(internalmetrics.MetricVerifyFailure)
	// MetricVerifyReplay counts codes rejected by replay protection.
	MetricVerifyReplay = MetricID(internalmetrics.MetricVerifyReplay)
	// MetricVerifyRateLimited counts verifications refused by the attempt limiter.
	MetricVerifyRateLimited = MetricID(internalmetrics.MetricVerifyRateLimited)
	// MetricCodeCopied counts codes handed to the clipboard collaborator.
	MetricCodeCopied = MetricID(internalmetrics.MetricCodeCopied)
	// MetricCopyFailed counts clipboard hand-offs that failed.
	MetricCopyFailed = MetricID(internalmetrics.MetricCopyFailed)
	// MetricRevealToggled counts reveal/mask toggles.
	MetricRevealToggled = MetricID(internalmetrics.MetricRevealToggled)
	// MetricTickLatency is the histogram of scheduler tick processing time.
	MetricTickLatency = MetricID(internalmetrics.MetricTickLatency)

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and the optional tick-latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a new [Metrics] instance configured by the given
// [MetricsConfig]. When Enabled is false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
