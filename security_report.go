package goOTP

import "github.com/MrEthical07/goOTP/internal/security"

// SecurityReport summarizes how an engine accepts codes: how long a code is
// valid for, whether it can be replayed and whether guessing is throttled.
type SecurityReport = security.Report

// SecurityReport returns the posture derived from the engine's configuration.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return security.BuildReport(security.ReportInput{
		Digits:                  e.config.TOTP.Digits,
		Period:                  e.config.TOTP.Period,
		TickInterval:            e.config.Scheduler.TickInterval,
		Skew:                    e.config.Verify.Skew,
		EnforceReplayProtection: e.config.Verify.EnforceReplayProtection,
		MaxAttempts:             e.config.Verify.MaxAttempts,
		Cooldown:                e.config.Verify.Cooldown,
		CustomHMAC:              e.customHMAC,
		AuditEnabled:            e.config.Audit.Enabled,
		AuditDropIfFull:         e.config.Audit.DropIfFull,
		MetricsEnabled:          e.config.Metrics.Enabled,
		EnableLatencyHistograms: e.config.Metrics.EnableLatencyHistograms,
	})
}
