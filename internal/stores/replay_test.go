package stores

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestGuard(t *testing.T) (*ReplayGuard, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewReplayGuard(rdb, "test"), mr
}

func TestReplayGuardRejectsSameOrOlderCounter(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuard(t)

	if err := g.Accept(ctx, "item", 100, time.Minute); err != nil {
		t.Fatalf("first accept: %v", err)
	}
	if err := g.Accept(ctx, "item", 100, time.Minute); !errors.Is(err, ErrReplayed) {
		t.Fatalf("same counter: expected ErrReplayed, got %v", err)
	}
	if err := g.Accept(ctx, "item", 99, time.Minute); !errors.Is(err, ErrReplayed) {
		t.Fatalf("older counter: expected ErrReplayed, got %v", err)
	}
	if err := g.Accept(ctx, "item", 101, time.Minute); err != nil {
		t.Fatalf("newer counter: %v", err)
	}
	if err := g.Accept(ctx, "other", 50, time.Minute); err != nil {
		t.Fatalf("independent item: %v", err)
	}

	last, ok, err := g.LastAccepted(ctx, "item")
	if err != nil || !ok || last != 101 {
		t.Fatalf("LastAccepted = %d, %v, %v", last, ok, err)
	}
}

func TestReplayGuardTTLAndForget(t *testing.T) {
	ctx := context.Background()
	g, mr := newTestGuard(t)

	if err := g.Accept(ctx, "item", 7, 90*time.Second); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if ttl := mr.TTL("test:used:item"); ttl != 90*time.Second {
		t.Fatalf("expected 90s ttl, got %v", ttl)
	}
	if err := g.Forget(ctx, "item"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, ok, _ := g.LastAccepted(ctx, "item"); ok {
		t.Fatal("expected no record after Forget")
	}
}

func TestReplayGuardConcurrentAcceptSingleWinner(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGuard(t)

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := g.Accept(ctx, "item", 42, time.Minute); err == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := accepted.Load(); got != 1 {
		t.Fatalf("expected exactly one accepted verification, got %d", got)
	}
}

func TestReplayGuardBackendDown(t *testing.T) {
	ctx := context.Background()
	g, mr := newTestGuard(t)
	mr.Close()

	if err := g.Accept(ctx, "item", 1, time.Minute); !errors.Is(err, ErrReplayBackend) {
		t.Fatalf("expected ErrReplayBackend, got %v", err)
	}
}
