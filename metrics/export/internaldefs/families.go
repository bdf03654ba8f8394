package internaldefs

import goOTP "github.com/MrEthical07/goOTP"

// Kind is the exposition type of a Family.
type Kind uint8

const (
	KindCounter Kind = iota
	KindGauge
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	default:
		return "histogram"
	}
}

// Family is one exported metric with its current value. Histograms carry
// cumulative bucket counts in Buckets; Value is their total count.
type Family struct {
	Name    string
	Help    string
	Kind    Kind
	Value   uint64
	Buckets [8]uint64
}

// Families turns one engine reading into the exported metric families, in
// the order exporters publish them.
func Families(snapshot goOTP.MetricsSnapshot, audit goOTP.AuditStats, running int) []Family {
	out := make([]Family, 0, len(CounterDefs)+len(HistogramDefs)+4)
	for _, def := range CounterDefs {
		out = append(out, Family{Name: def.Name, Help: def.Help, Kind: KindCounter, Value: snapshot.Counters[def.ID]})
	}
	for _, def := range HistogramDefs {
		cumulative := CumulativeBuckets(NormalizeBuckets(snapshot.Histograms[def.ID]))
		out = append(out, Family{
			Name:    def.Name,
			Help:    def.Help,
			Kind:    KindHistogram,
			Value:   cumulative[len(cumulative)-1],
			Buckets: cumulative,
		})
	}
	if running < 0 {
		running = 0
	}
	out = append(out,
		Family{Name: AuditDeliveredName, Help: AuditDeliveredHelp, Kind: KindCounter, Value: audit.Delivered},
		Family{Name: AuditDroppedName, Help: AuditDroppedHelp, Kind: KindCounter, Value: audit.Dropped},
		Family{Name: AuditSinkPanicsName, Help: AuditSinkPanicsHelp, Kind: KindCounter, Value: audit.SinkPanics},
		Family{Name: RunningDisplaysName, Help: RunningDisplaysHelp, Kind: KindGauge, Value: uint64(running)},
	)
	return out
}

// Describe lists every family with zero values, for exporters that register
// instruments up front.
func Describe() []Family {
	return Families(goOTP.MetricsSnapshot{}, goOTP.AuditStats{}, 0)
}
