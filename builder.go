package goOTP

import (
	"errors"

	"github.com/MrEthical07/goOTP/clock"
	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/stores"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Builder defines a public type used by goOTP APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	clock  clock.Clock
	hmac   HMACFunc
	log    logrus.FieldLogger

	auditSink AuditSink
	clipboard Clipboard
	revealer  Revealer

	built bool
}

// New describes the new operation and its observable behavior.
//
// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration; it is validated by Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the attempt limiter and replay guard.
// It is required only when Verify.MaxAttempts or
// Verify.EnforceReplayProtection is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithClock injects the time source and ticker factory. Tests use clock.Fake.
func (b *Builder) WithClock(clk clock.Clock) *Builder {
	b.clock = clk
	return b
}

// WithHMAC replaces the HMAC-SHA1 primitive, e.g. with a platform crypto
// provider. The function must return a 20-byte digest.
func (b *Builder) WithHMAC(mac HMACFunc) *Builder {
	b.hmac = mac
	return b
}

// WithLogger sets the logger. The default is logrus.StandardLogger().
func (b *Builder) WithLogger(log logrus.FieldLogger) *Builder {
	b.log = log
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink has no effect unless Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithClipboard sets the collaborator used by Bridge.OnCopy.
func (b *Builder) WithClipboard(c Clipboard) *Builder {
	b.clipboard = c
	return b
}

// WithRevealer sets the collaborator notified by Bridge.OnReveal.
func (b *Builder) WithRevealer(r Revealer) *Builder {
	b.revealer = r
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build validates the configuration and wires the engine. A Builder can be
// used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil && cfg.Verify.requiresRedis() {
		if cfg.Verify.EnforceReplayProtection {
			return nil, errors.New("Verify EnforceReplayProtection requires redis client")
		}
		return nil, errors.New("Verify MaxAttempts requires redis client")
	}

	clk := b.clock
	if clk == nil {
		clk = clock.Real()
	}
	log := b.log
	if log == nil {
		log = logrus.StandardLogger()
	}

	engine := &Engine{
		config:     cloneConfig(cfg),
		clock:      clk,
		deriver:    NewDeriver(b.hmac),
		customHMAC: b.hmac != nil,
		clipboard:  b.clipboard,
		revealer:   b.revealer,
		log:        log,
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.scheduler = newScheduler(
		clk,
		engine.deriver,
		cfg.Scheduler.TickInterval,
		cfg.TOTP.Params(),
		engine.metrics,
		engine.audit,
		log,
	)

	// -------- VERIFIER --------
	v := &verifier{
		deriver: engine.deriver,
		skew:    cfg.Verify.Skew,
	}
	if cfg.Verify.MaxAttempts > 0 {
		v.limiter = limiters.NewAttemptLimiter(b.redis, limiters.Config{
			MaxAttempts: cfg.Verify.MaxAttempts,
			Cooldown:    cfg.Verify.Cooldown,
			Prefix:      cfg.Verify.RedisPrefix,
		})
	}
	if cfg.Verify.EnforceReplayProtection {
		v.replay = stores.NewReplayGuard(b.redis, cfg.Verify.RedisPrefix)
	}
	engine.verifier = v

	b.built = true

	return engine, nil
}
