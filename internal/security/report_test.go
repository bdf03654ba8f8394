package security

import (
	"testing"
	"time"
)

func TestBuildReportAcceptanceWindow(t *testing.T) {
	r := BuildReport(ReportInput{Digits: 6, Period: 30, Skew: 1})
	if r.AcceptanceWindow != 90*time.Second {
		t.Fatalf("expected 90s acceptance window, got %v", r.AcceptanceWindow)
	}

	r = BuildReport(ReportInput{Digits: 6, Period: 30, Skew: 0})
	if r.AcceptanceWindow != 30*time.Second {
		t.Fatalf("expected 30s acceptance window, got %v", r.AcceptanceWindow)
	}
}

func TestBuildReportDerivedFlags(t *testing.T) {
	r := BuildReport(ReportInput{
		MaxAttempts:             5,
		Cooldown:                0,
		AuditEnabled:            false,
		AuditDropIfFull:         true,
		MetricsEnabled:          false,
		EnableLatencyHistograms: true,
	})
	if r.AttemptLimitingActive {
		t.Fatal("limiting without cooldown must not be reported active")
	}
	if r.AuditMayDrop {
		t.Fatal("disabled audit cannot drop")
	}
	if r.LatencyHistogramActive {
		t.Fatal("histograms require metrics")
	}

	r = BuildReport(ReportInput{MaxAttempts: 5, Cooldown: time.Minute, AuditEnabled: true, AuditDropIfFull: true})
	if !r.AttemptLimitingActive || !r.AuditMayDrop {
		t.Fatalf("unexpected report %+v", r)
	}
}
