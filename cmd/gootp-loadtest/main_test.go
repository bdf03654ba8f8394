package main

import (
	"context"
	"testing"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	tests := []struct {
		p    int
		want time.Duration
	}{
		{0, 1},
		{50, 5},
		{99, 9},
		{100, 10},
	}
	for _, tt := range tests {
		if got := percentile(samples, tt.p); got != tt.want {
			t.Errorf("percentile(%d) = %d, want %d", tt.p, got, tt.want)
		}
	}
	if got := percentile(nil, 50); got != 0 {
		t.Errorf("percentile(nil) = %d", got)
	}
}

func TestSecretForDecodes(t *testing.T) {
	for i := 0; i < 3; i++ {
		if n := len(goOTP.DecodeSecret(secretFor(i))); n != 20 {
			t.Fatalf("secretFor(%d) decodes to %d bytes", i, n)
		}
	}
	if secretFor(1) == secretFor(2) {
		t.Fatal("expected distinct secrets")
	}
}

func TestPhasesCountNoFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := goOTP.DefaultConfig()
	cfg.Verify.EnforceReplayProtection = true
	cfg.Verify.MaxAttempts = 5
	engine, err := goOTP.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer engine.Close()

	states := []itemState{{id: "a", secret: secretFor(1)}, {id: "b", secret: secretFor(2)}}

	derive := runDerivePhase(engine, states, 50, 4)
	if derive.ops != 50 || derive.failures != 0 {
		t.Fatalf("derive stats = %+v", derive)
	}
	verify := runVerifyPhase(context.Background(), engine, states, 20, 2)
	if verify.ops != 20 || verify.failures != 0 {
		t.Fatalf("verify stats = %+v", verify)
	}
}
