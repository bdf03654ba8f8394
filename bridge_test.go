package goOTP

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type memClipboard struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *memClipboard) WriteText(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.texts = append(c.texts, text)
	return nil
}

func (c *memClipboard) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.texts) == 0 {
		return ""
	}
	return c.texts[len(c.texts)-1]
}

func newBridgeEngine(t *testing.T, clip Clipboard, rev Revealer) (*Engine, *Bridge, *[]BridgeState) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	engine, _ := newTestEngine(t, cfg, func(b *Builder) {
		b.WithClipboard(clip).WithRevealer(rev)
	})
	var mu sync.Mutex
	states := []BridgeState{}
	br, err := engine.NewBridge(func(s BridgeState) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}
	return engine, br, &states
}

func TestBridgeCopyAcknowledgementResets(t *testing.T) {
	clip := &memClipboard{}
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true
	engine, fake := newTestEngine(t, cfg, func(b *Builder) { b.WithClipboard(clip) })
	br, err := engine.NewBridge(nil)
	if err != nil {
		t.Fatalf("NewBridge failed: %v", err)
	}

	if err := br.OnCopy(context.Background(), "display-1", "081804"); err != nil {
		t.Fatalf("OnCopy failed: %v", err)
	}
	if clip.last() != "081804" {
		t.Fatalf("clipboard got %q", clip.last())
	}
	if !br.State().Copied {
		t.Fatal("expected copied acknowledgement")
	}

	fake.Advance(time.Second)
	if !br.State().Copied {
		t.Fatal("acknowledgement cleared too early")
	}
	fake.Advance(time.Second)
	if br.State().Copied {
		t.Fatal("expected acknowledgement to reset after 2s")
	}
	if engine.MetricsSnapshot().Counters[MetricCodeCopied] != 1 {
		t.Fatal("expected copy to be counted")
	}
}

func TestBridgeRepeatedCopyExtendsAcknowledgement(t *testing.T) {
	clip := &memClipboard{}
	engine, fake := newTestEngine(t, DefaultConfig(), func(b *Builder) { b.WithClipboard(clip) })
	br, _ := engine.NewBridge(nil)

	_ = br.OnCopy(context.Background(), "", "111111")
	fake.Advance(1500 * time.Millisecond)
	_ = br.OnCopy(context.Background(), "", "222222")
	fake.Advance(1500 * time.Millisecond)
	if !br.State().Copied {
		t.Fatal("second copy must restart the acknowledgement timer")
	}
	fake.Advance(500 * time.Millisecond)
	if br.State().Copied {
		t.Fatal("expected reset 2s after the last copy")
	}
	if fake.PendingTimers() != 0 {
		t.Fatalf("expected no pending timers, got %d", fake.PendingTimers())
	}
}

func TestBridgeCopyFailure(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Metrics.Enabled = true

	engine, _ := newTestEngine(t, cfg)
	br, _ := engine.NewBridge(nil)
	if err := br.OnCopy(context.Background(), "", "081804"); !errors.Is(err, ErrClipboardUnavailable) {
		t.Fatalf("expected ErrClipboardUnavailable without clipboard, got %v", err)
	}

	clip := &memClipboard{err: errors.New("pasteboard locked")}
	engine, _ = newTestEngine(t, cfg, func(b *Builder) { b.WithClipboard(clip) })
	br, _ = engine.NewBridge(nil)
	err := br.OnCopy(context.Background(), "", "081804")
	if !errors.Is(err, ErrClipboardUnavailable) {
		t.Fatalf("expected wrapped ErrClipboardUnavailable, got %v", err)
	}
	if br.State().Copied {
		t.Fatal("failed copy must not acknowledge")
	}
	if engine.MetricsSnapshot().Counters[MetricCopyFailed] != 1 {
		t.Fatal("expected failed copy to be counted")
	}
}

func TestBridgeRevealNeverMasksOTP(t *testing.T) {
	var revealed []bool
	rev := RevealerFunc(func(r bool) { revealed = append(revealed, r) })
	engine, br, states := newBridgeEngine(t, &memClipboard{}, rev)

	masked := br.Render(FieldSensitive, "hunter2")
	if masked == "hunter2" || strings.Count(masked, maskGlyph) != maskedLength {
		t.Fatalf("expected fixed-length mask, got %q", masked)
	}
	if got := br.Render(FieldOTP, "081804"); got != "081804" {
		t.Fatalf("OTP must never be masked, got %q", got)
	}
	if got := br.Render(FieldPlain, "alice"); got != "alice" {
		t.Fatalf("plain field changed: %q", got)
	}

	if !br.ToggleReveal() {
		t.Fatal("expected reveal to turn on")
	}
	if got := br.Render(FieldSensitive, "hunter2"); got != "hunter2" {
		t.Fatalf("expected revealed value, got %q", got)
	}
	if got := br.Render(FieldOTP, "081804"); got != "081804" {
		t.Fatalf("OTP must be unaffected by reveal, got %q", got)
	}

	br.OnReveal(true)
	br.OnReveal(false)

	if len(revealed) != 2 || !revealed[0] || revealed[1] {
		t.Fatalf("unexpected revealer calls %v", revealed)
	}
	if len(*states) != 2 {
		t.Fatalf("expected 2 state notifications, got %d", len(*states))
	}
	if engine.MetricsSnapshot().Counters[MetricRevealToggled] != 2 {
		t.Fatal("expected reveal toggles to be counted")
	}
}

func TestBridgeCloseCancelsReset(t *testing.T) {
	clip := &memClipboard{}
	engine, fake := newTestEngine(t, DefaultConfig(), func(b *Builder) { b.WithClipboard(clip) })
	br, _ := engine.NewBridge(nil)

	_ = br.OnCopy(context.Background(), "", "081804")
	br.Close()
	if fake.PendingTimers() != 0 {
		t.Fatalf("expected Close to cancel the reset timer, got %d pending", fake.PendingTimers())
	}
}
