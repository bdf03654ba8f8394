package otel

import (
	"context"
	"errors"
	"fmt"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goOTP.MetricsSnapshot
	AuditStats() goOTP.AuditStats
	RunningDisplays() int
}

// OTelExporter publishes engine metrics through observable instruments read
// on every collection. Histograms are flattened into one gauge per cumulative
// bucket plus a _count gauge.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     map[string]metric.Int64ObservableCounter
	gauges       map[string]metric.Int64ObservableGauge
}

// NewOTelExporter registers instruments on meter that observe engine.
func NewOTelExporter(meter metric.Meter, engine *goOTP.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{
		source:   source,
		counters: make(map[string]metric.Int64ObservableCounter),
		gauges:   make(map[string]metric.Int64ObservableGauge),
	}
	var observables []metric.Observable

	gauge := func(name, help string) error {
		ins, err := meter.Int64ObservableGauge(name, metric.WithDescription(help))
		if err != nil {
			return fmt.Errorf("create observable gauge %s: %w", name, err)
		}
		e.gauges[name] = ins
		observables = append(observables, ins)
		return nil
	}

	for _, f := range internaldefs.Describe() {
		switch f.Kind {
		case internaldefs.KindCounter:
			ins, err := meter.Int64ObservableCounter(f.Name, metric.WithDescription(f.Help))
			if err != nil {
				return nil, fmt.Errorf("create observable counter %s: %w", f.Name, err)
			}
			e.counters[f.Name] = ins
			observables = append(observables, ins)
		case internaldefs.KindGauge:
			if err := gauge(f.Name, f.Help); err != nil {
				return nil, err
			}
		case internaldefs.KindHistogram:
			for _, suffix := range internaldefs.HistogramBoundSuffix {
				if err := gauge(bucketName(f.Name, suffix), "Cumulative histogram bucket count."); err != nil {
					return nil, err
				}
			}
			if err := gauge(f.Name+"_count", "Histogram total sample count."); err != nil {
				return nil, err
			}
		}
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = registration
	return e, nil
}

func bucketName(family, suffix string) string {
	return family + "_bucket_le_" + suffix
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	families := internaldefs.Families(e.source.MetricsSnapshot(), e.source.AuditStats(), e.source.RunningDisplays())
	for _, f := range families {
		switch f.Kind {
		case internaldefs.KindCounter:
			o.ObserveInt64(e.counters[f.Name], int64(f.Value))
		case internaldefs.KindGauge:
			o.ObserveInt64(e.gauges[f.Name], int64(f.Value))
		case internaldefs.KindHistogram:
			for i, suffix := range internaldefs.HistogramBoundSuffix {
				o.ObserveInt64(e.gauges[bucketName(f.Name, suffix)], int64(f.Buckets[i]))
			}
			o.ObserveInt64(e.gauges[f.Name+"_count"], int64(f.Value))
		}
	}
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
