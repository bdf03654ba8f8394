package goOTP

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goOTP/clock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

// rfcTime is the second RFC 6238 test vector; its 6-digit code is 081804.
const rfcTime = 1111111109

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestEngine(t *testing.T, cfg Config, configure ...func(*Builder)) (*Engine, *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(time.Unix(rfcTime, 0))
	log, _ := logtest.NewNullLogger()
	b := New().WithConfig(cfg).WithClock(fake).WithLogger(log)
	for _, fn := range configure {
		fn(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, fake
}

func TestBuildRequiresRedisOnlyForVerifyState(t *testing.T) {
	if _, err := New().Build(); err != nil {
		t.Fatalf("default build must not need redis: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Verify.EnforceReplayProtection = true
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected replay protection without redis to fail")
	}

	cfg = DefaultConfig()
	cfg.Verify.MaxAttempts = 3
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected attempt limiting without redis to fail")
	}

	_, rdb := newTestRedis(t)
	engine, err := New().WithConfig(cfg).WithRedis(rdb).Build()
	if err != nil {
		t.Fatalf("build with redis failed: %v", err)
	}
	engine.Close()
}

func TestBuildRejectsInvalidConfigAndReuse(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TOTP.Digits = 10
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected invalid config error")
	}

	b := New()
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build on same builder to fail")
	}
}

func TestEngineCodeUsesInjectedClock(t *testing.T) {
	engine, fake := newTestEngine(t, DefaultConfig())

	code, err := engine.Code(rfcSecret, Params{})
	if err != nil {
		t.Fatalf("Code failed: %v", err)
	}
	if code != "081804" {
		t.Fatalf("expected 081804, got %s", code)
	}

	w, err := engine.Window(rfcSecret, Params{})
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if w.Remaining != 30-rfcTime%30 {
		t.Fatalf("unexpected remaining %d", w.Remaining)
	}

	fake.Advance(time.Duration(w.Remaining) * time.Second)
	next, err := engine.Code(rfcSecret, Params{})
	if err != nil {
		t.Fatalf("Code failed: %v", err)
	}
	want, _ := TOTP(rfcSecret, rfcTime+int64(w.Remaining), 30, 6)
	if next != want {
		t.Fatalf("expected %s after window change, got %s", want, next)
	}
}

func TestEngineNextWindowMatchesFutureWindow(t *testing.T) {
	engine, fake := newTestEngine(t, DefaultConfig())

	next, err := engine.NextWindow(rfcSecret, Params{Digits: 8})
	if err != nil {
		t.Fatalf("NextWindow failed: %v", err)
	}
	fake.Advance(30 * time.Second)
	cur, err := engine.Window(rfcSecret, Params{Digits: 8})
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if next.Code != cur.Code || next.Counter != cur.Counter {
		t.Fatalf("NextWindow %+v does not match later window %+v", next, cur)
	}
}

func TestEngineConfiguredDefaultsApplyToZeroParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TOTP.Digits = 8
	engine, _ := newTestEngine(t, cfg)

	code, err := engine.Code(rfcSecret, Params{})
	if err != nil {
		t.Fatalf("Code failed: %v", err)
	}
	if code != "07081804" {
		t.Fatalf("expected 8-digit default 07081804, got %s", code)
	}

	p, err := engine.Params(ItemLogin, Params{Digits: 6, Period: 60})
	if err != nil {
		t.Fatalf("Params failed: %v", err)
	}
	if p.Digits != 8 || p.Period != 30 {
		t.Fatalf("login items must ignore overrides, got %+v", p)
	}
	p, err = engine.Params(ItemAuthenticator, Params{Digits: 7, Period: 60})
	if err != nil || p.Digits != 7 || p.Period != 60 {
		t.Fatalf("authenticator override not honored: %+v, %v", p, err)
	}
	p, err = engine.Params(ItemAuthenticator, Params{Period: 60})
	if err != nil || p.Digits != 8 || p.Period != 60 {
		t.Fatalf("zero digits must fall back to the engine default, got %+v, %v", p, err)
	}
	if _, err := engine.Params(ItemAuthenticator, Params{Digits: 4}); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
}

func TestEngineInvalidSecretCounted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	engine, _ := newTestEngine(t, cfg)

	if _, err := engine.Code("!!!!", Params{}); !errors.Is(err, ErrInvalidSecret) {
		t.Fatalf("expected ErrInvalidSecret, got %v", err)
	}
	if _, err := engine.Code(rfcSecret, Params{Digits: 9}); !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("expected ErrInvalidParameters, got %v", err)
	}
	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricInvalidSecret] != 1 || snap.Counters[MetricInvalidParameters] != 1 {
		t.Fatalf("unexpected counters %+v", snap.Counters)
	}
}

func TestEngineCustomHMACIsUsed(t *testing.T) {
	calls := 0
	mac := func(key, msg []byte) []byte {
		calls++
		return HMACSHA1(key, msg)
	}
	engine, _ := newTestEngine(t, DefaultConfig(), func(b *Builder) { b.WithHMAC(mac) })

	code, err := engine.Code(rfcSecret, Params{})
	if err != nil || code != "081804" {
		t.Fatalf("expected 081804 through custom HMAC, got %q (%v)", code, err)
	}
	if calls != 1 {
		t.Fatalf("expected custom HMAC to be called once, got %d", calls)
	}
	if !engine.SecurityReport().CustomHMAC {
		t.Fatal("security report should flag the custom HMAC")
	}
}

func TestNilEngineNotReady(t *testing.T) {
	var e *Engine
	if _, err := e.Code(rfcSecret, Params{}); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.NewDisplay(nil); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if _, err := e.Verify(context.Background(), "item", rfcSecret, Params{}, "000000"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	e.Close()
	if stats := e.AuditStats(); stats.Dropped != 0 || stats.Delivered != 0 || len(stats.DroppedByType) != 0 {
		t.Fatalf("nil engine reports no audit activity, got %+v", stats)
	}
	if _, _, err := e.AttemptsRemaining(context.Background(), "item"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
	if err := e.ResetItem(context.Background(), "item"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("expected ErrEngineNotReady, got %v", err)
	}
}

func TestEngineLogsNeverContainSecretOrCode(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	engine, fake := newTestEngine(t, DefaultConfig(), func(b *Builder) { b.WithLogger(log) })

	d, err := engine.NewDisplay(nil)
	if err != nil {
		t.Fatalf("NewDisplay failed: %v", err)
	}
	if err := d.Start(rfcSecret, Params{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	fake.Advance(time.Second)
	d.Stop()

	if len(hook.AllEntries()) == 0 {
		t.Fatal("expected debug log entries")
	}
	for _, entry := range hook.AllEntries() {
		line, _ := entry.String()
		if stringContains(line, rfcSecret) || stringContains(line, "081804") {
			t.Fatalf("log entry leaks secret material: %s", line)
		}
	}
}
