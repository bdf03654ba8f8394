package main

import (
	"context"
	"encoding/base32"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type itemState struct {
	id     string
	secret string
}

func main() {
	var (
		itemCount   = flag.Int("items", 10000, "number of items to generate")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (derive + verify)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "otp", "verification key prefix")
		maxAttempts = flag.Int("max-attempts", 5, "failed attempts per item before cooldown")
	)
	flag.Parse()

	if *itemCount <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "items, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	cfg := goOTP.DefaultConfig()
	cfg.Verify.EnforceReplayProtection = true
	cfg.Verify.MaxAttempts = *maxAttempts
	cfg.Verify.RedisPrefix = *prefix
	cfg.Metrics.Enabled = true
	engine, err := goOTP.New().
		WithConfig(cfg).
		WithRedis(client).
		WithLogger(log).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]itemState, *itemCount)
	for i := range states {
		states[i] = itemState{id: fmt.Sprintf("item-%d", i), secret: secretFor(i)}
	}
	fmt.Printf("generated %d items\n", *itemCount)

	deriveStats := runDerivePhase(engine, states, *ops, *concurrency)
	verifyStats := runVerifyPhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("derive", deriveStats)
	printStats("verify", verifyStats)
	snap := engine.MetricsSnapshot()
	fmt.Printf("verify outcomes: success=%d failure=%d replay=%d rate_limited=%d\n",
		snap.Counters[goOTP.MetricVerifySuccess],
		snap.Counters[goOTP.MetricVerifyFailure],
		snap.Counters[goOTP.MetricVerifyReplay],
		snap.Counters[goOTP.MetricVerifyRateLimited],
	)
}

func runDerivePhase(engine *goOTP.Engine, states []itemState, ops, concurrency int) phaseStats {
	return runPhase(states, ops, concurrency, 7919, func(state *itemState) error {
		_, err := engine.Window(state.secret, goOTP.Params{})
		return err
	})
}

// runVerifyPhase submits the current code of a random item. Most submissions
// repeat a code that was already accepted in the same window, so replay
// rejections are expected and not counted as failures.
func runVerifyPhase(ctx context.Context, engine *goOTP.Engine, states []itemState, ops, concurrency int) phaseStats {
	return runPhase(states, ops, concurrency, 6151, func(state *itemState) error {
		code, err := engine.Code(state.secret, goOTP.Params{})
		if err != nil {
			return err
		}
		_, err = engine.Verify(ctx, state.id, state.secret, goOTP.Params{}, code)
		if errors.Is(err, goOTP.ErrCodeReplayed) {
			return nil
		}
		return err
	})
}

// runPhase spreads ops over concurrency workers. Each worker keeps its own
// latency samples; they are merged once the phase ends.
func runPhase(states []itemState, ops, concurrency int, seed int64, op func(*itemState) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    atomic.Int64
		failures  atomic.Int64
		perWorker = make([][]time.Duration, concurrency)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			samples := make([]time.Duration, 0, ops/concurrency+1)
			for cursor.Add(1) <= int64(ops) {
				state := &states[r.Intn(len(states))]
				t0 := time.Now()
				if err := op(state); err != nil {
					failures.Add(1)
				}
				samples = append(samples, time.Since(t0))
			}
			perWorker[worker] = samples
		}(w)
	}
	wg.Wait()
	total := time.Since(start)

	merged := make([]time.Duration, 0, ops)
	for _, samples := range perWorker {
		merged = append(merged, samples...)
	}
	return newPhaseStats(total, merged, failures.Load())
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
}

func newPhaseStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	slices.Sort(samples)
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
	}
}

func (s phaseStats) opsPerSecond() float64 {
	if s.total <= 0 {
		return 0
	}
	return float64(s.ops) / s.total.Seconds()
}

// percentile reads the p-th percentile from sorted samples.
func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	p = max(0, min(p, 100))
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%-7s ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerSecond(),
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// secretFor returns a deterministic 20-byte key for item i, Base32 encoded.
func secretFor(i int) string {
	var raw [20]byte
	for j := 0; j < len(raw); j++ {
		raw[j] = byte((i + j*17 + 11) % 251)
	}
	return base32.StdEncoding.EncodeToString(raw[:])
}
