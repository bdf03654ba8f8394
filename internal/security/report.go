package security

import "time"

// Report summarizes the security-relevant posture of a configured engine.
type Report struct {
	Digits                 int
	Period                 int
	TickInterval           time.Duration
	VerifySkew             int
	AcceptanceWindow       time.Duration
	ReplayProtection       bool
	AttemptLimitingActive  bool
	MaxAttempts            int
	AttemptCooldown        time.Duration
	CustomHMAC             bool
	AuditEnabled           bool
	AuditMayDrop           bool
	MetricsEnabled         bool
	LatencyHistogramActive bool
}

// ReportInput is the flattened configuration a Report is built from.
type ReportInput struct {
	Digits                  int
	Period                  int
	TickInterval            time.Duration
	Skew                    int
	EnforceReplayProtection bool
	MaxAttempts             int
	Cooldown                time.Duration
	CustomHMAC              bool
	AuditEnabled            bool
	AuditDropIfFull         bool
	MetricsEnabled          bool
	EnableLatencyHistograms bool
}

// BuildReport derives a Report from input. AcceptanceWindow is the total span
// of time during which one code is accepted by the verifier.
func BuildReport(input ReportInput) Report {
	limiting := input.MaxAttempts > 0 && input.Cooldown > 0

	return Report{
		Digits:                 input.Digits,
		Period:                 input.Period,
		TickInterval:           input.TickInterval,
		VerifySkew:             input.Skew,
		AcceptanceWindow:       time.Duration((2*input.Skew+1)*input.Period) * time.Second,
		ReplayProtection:       input.EnforceReplayProtection,
		AttemptLimitingActive:  limiting,
		MaxAttempts:            input.MaxAttempts,
		AttemptCooldown:        input.Cooldown,
		CustomHMAC:             input.CustomHMAC,
		AuditEnabled:           input.AuditEnabled,
		AuditMayDrop:           input.AuditEnabled && input.AuditDropIfFull,
		MetricsEnabled:         input.MetricsEnabled,
		LatencyHistogramActive: input.MetricsEnabled && input.EnableLatencyHistograms,
	}
}
