package goOTP

import (
	"context"
	"time"

	"github.com/MrEthical07/goOTP/clock"
	"github.com/sirupsen/logrus"
)

// Engine defines a public type used by goOTP APIs.
//
// Engine instances are built once by Builder and are safe for concurrent use.
type Engine struct {
	config     Config
	clock      clock.Clock
	deriver    *Deriver
	customHMAC bool
	scheduler  *Scheduler
	verifier   *verifier
	clipboard  Clipboard
	revealer   Revealer
	audit      *auditDispatcher
	metrics    *Metrics
	log        logrus.FieldLogger
}

// Close stops every display, releases the shared ticker and flushes the audit
// dispatcher. It must not be called from an UpdateFunc.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.scheduler != nil {
		e.scheduler.Close()
	}
	if e.audit != nil {
		e.audit.Close()
		stats := e.audit.Stats()
		if stats.Dropped > 0 && e.log != nil {
			fields := logrus.Fields{"dropped": stats.Dropped}
			for eventType, n := range stats.DroppedByType {
				fields["dropped_"+eventType] = n
			}
			e.log.WithFields(fields).Warn("goOTP: audit events dropped under backpressure")
		}
		if stats.SinkPanics > 0 && e.log != nil {
			e.log.WithField("sink_panics", stats.SinkPanics).Error("goOTP: audit sink panicked")
		}
	}
}

// FlushAudit waits until every audit event emitted so far has reached the
// sink. It returns immediately when auditing is disabled.
func (e *Engine) FlushAudit(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.audit.Flush(ctx)
}

// AuditStats reports delivered, dropped and panicked audit events. Drops are
// also broken down by event type.
func (e *Engine) AuditStats() AuditStats {
	if e == nil {
		return AuditStats{DroppedByType: map[string]uint64{}}
	}
	return e.audit.Stats()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot returns empty maps when metrics are disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Params resolves the effective parameters for an item of kind. Login items
// use the engine's configured TOTP defaults, which also fill zero fields of an
// authenticator override.
func (e *Engine) Params(kind ItemKind, override Params) (Params, error) {
	if e == nil {
		return Params{}, ErrEngineNotReady
	}
	return kind.paramsWith(e.config.TOTP.Params(), override)
}

// Code returns the code of secret for the current window.
func (e *Engine) Code(secret string, p Params) (string, error) {
	w, err := e.Window(secret, p)
	if err != nil {
		return "", err
	}
	return w.Code, nil
}

// Window returns the current window of secret as read from the engine clock.
func (e *Engine) Window(secret string, p Params) (Window, error) {
	if e == nil || e.deriver == nil {
		return Window{}, ErrEngineNotReady
	}
	return e.WindowAt(secret, p, e.clock.Now())
}

// WindowAt returns the window of secret that contains t.
func (e *Engine) WindowAt(secret string, p Params, t time.Time) (Window, error) {
	if e == nil || e.deriver == nil {
		return Window{}, ErrEngineNotReady
	}
	w, err := e.deriver.Window(secret, e.fillParams(p), t)
	e.countDerivationError(err)
	return w, err
}

// NextWindow returns the window following the current one.
func (e *Engine) NextWindow(secret string, p Params) (Window, error) {
	if e == nil || e.deriver == nil {
		return Window{}, ErrEngineNotReady
	}
	w, err := e.deriver.Next(secret, e.fillParams(p), e.clock.Now())
	e.countDerivationError(err)
	return w, err
}

// NewDisplay returns an idle display driven by the engine's shared scheduler.
func (e *Engine) NewDisplay(fn UpdateFunc) (*Display, error) {
	if e == nil || e.scheduler == nil {
		return nil, ErrEngineNotReady
	}
	return e.scheduler.NewDisplay(fn), nil
}

// RunningDisplays reports how many displays are attached to the ticker.
func (e *Engine) RunningDisplays() int {
	if e == nil || e.scheduler == nil {
		return 0
	}
	return e.scheduler.Running()
}

// fillParams applies the engine's configured defaults to zero fields.
func (e *Engine) fillParams(p Params) Params {
	if p.Digits == 0 {
		p.Digits = e.config.TOTP.Digits
	}
	if p.Period == 0 {
		p.Period = e.config.TOTP.Period
	}
	return p
}

func (e *Engine) countDerivationError(err error) {
	switch {
	case err == nil:
	case isInvalidSecret(err):
		e.metricInc(MetricInvalidSecret)
	case isInvalidParameters(err):
		e.metricInc(MetricInvalidParameters)
	}
}
