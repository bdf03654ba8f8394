package goOTP

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by goOTP APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	TOTP      TOTPConfig
	Scheduler SchedulerConfig
	Verify    VerifyConfig
	Bridge    BridgeConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig holds the engine-wide default time-step parameters. Items of
// kind ItemLogin always use these; ItemAuthenticator items may override them.
type TOTPConfig struct {
	Digits int
	Period int
}

// Params returns the configured defaults as a Params value.
func (c TOTPConfig) Params() Params {
	return Params{Digits: c.Digits, Period: c.Period}
}

/*
====================================
SCHEDULER CONFIG
====================================
*/

// SchedulerConfig controls the shared countdown ticker.
type SchedulerConfig struct {
	// TickInterval is the period of the shared ticker. It must not exceed one
	// second or a displayed countdown could skip values.
	TickInterval time.Duration
}

/*
====================================
VERIFY CONFIG
====================================
*/

// VerifyConfig defines a public type used by goOTP APIs.
//
// VerifyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VerifyConfig struct {
	// Skew is the number of adjacent windows accepted on each side of the
	// current one. The countdown displays never apply it.
	Skew                    int
	EnforceReplayProtection bool
	// MaxAttempts is the failed-attempt budget per item within Cooldown.
	// Zero disables attempt limiting.
	MaxAttempts int
	Cooldown    time.Duration
	RedisPrefix string
}

func (c VerifyConfig) requiresRedis() bool {
	return c.EnforceReplayProtection || c.MaxAttempts > 0
}

/*
====================================
BRIDGE CONFIG
====================================
*/

// BridgeConfig controls the presentation bridge.
type BridgeConfig struct {
	// CopiedResetAfter is how long the "copied" acknowledgement stays set
	// after a successful copy.
	CopiedResetAfter time.Duration
}

// AuditConfig defines a public type used by goOTP APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goOTP APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the configuration used when Builder.WithConfig is not
// called: 6 digits, 30 second period, 1 second tick, one window of verify skew
// with replay protection off and no attempt limiting.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		TOTP: TOTPConfig{
			Digits: DefaultDigits,
			Period: DefaultPeriod,
		},
		Scheduler: SchedulerConfig{
			TickInterval: time.Second,
		},
		Verify: VerifyConfig{
			Skew:                    1,
			EnforceReplayProtection: false,
			MaxAttempts:             0,
			Cooldown:                time.Minute,
			RedisPrefix:             "otp",
		},
		Bridge: BridgeConfig{
			CopiedResetAfter: 2 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	return cfg
}

/*
====================================
VALIDATION
====================================
*/

const maxVerifySkew = 10

// Validate describes the validate operation and its observable behavior.
//
// Validate returns the first configuration error found. It does not mutate
// the receiver.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	// TOTP
	if c.TOTP.Digits < MinDigits || c.TOTP.Digits > MaxDigits {
		return errors.New("TOTP Digits must be between 6 and 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP Period must be > 0")
	}

	// Scheduler
	if c.Scheduler.TickInterval <= 0 {
		return errors.New("Scheduler TickInterval must be > 0")
	}
	if c.Scheduler.TickInterval > time.Second {
		return errors.New("Scheduler TickInterval must be <= 1s")
	}

	// Verify
	if c.Verify.Skew < 0 || c.Verify.Skew > maxVerifySkew {
		return errors.New("Verify Skew must be between 0 and 10")
	}
	if c.Verify.MaxAttempts < 0 {
		return errors.New("Verify MaxAttempts must be >= 0")
	}
	if c.Verify.MaxAttempts > 0 && c.Verify.Cooldown <= 0 {
		return errors.New("Verify Cooldown must be > 0 when MaxAttempts is set")
	}
	if c.Verify.requiresRedis() && strings.TrimSpace(c.Verify.RedisPrefix) == "" {
		return errors.New("Verify RedisPrefix must not be empty")
	}

	// Bridge
	if c.Bridge.CopiedResetAfter <= 0 {
		return errors.New("Bridge CopiedResetAfter must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
