package goOTP

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/goOTP/clock"
	"github.com/sirupsen/logrus"
)

// Clipboard is the platform collaborator that receives copied codes.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ClipboardFunc adapts a function to the Clipboard interface.
type ClipboardFunc func(ctx context.Context, text string) error

// WriteText calls f(ctx, text).
func (f ClipboardFunc) WriteText(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Revealer is notified when the user toggles masking of sensitive fields.
type Revealer interface {
	SetRevealed(revealed bool)
}

// RevealerFunc adapts a function to the Revealer interface.
type RevealerFunc func(revealed bool)

// SetRevealed calls f(revealed).
func (f RevealerFunc) SetRevealed(revealed bool) {
	f(revealed)
}

// FieldKind classifies a rendered field for masking.
type FieldKind uint8

const (
	// FieldPlain is never masked.
	FieldPlain FieldKind = iota
	// FieldSensitive (passwords, card numbers) is masked until revealed.
	FieldSensitive
	// FieldOTP holds a rolling code. It is never masked.
	FieldOTP
)

const maskGlyph = "•"

// maskedLength is fixed so the mask does not leak the value's length.
const maskedLength = 8

// BridgeState is the presentation state of one view.
type BridgeState struct {
	Copied   bool
	Revealed bool
}

// Bridge connects a view to the clipboard and the reveal toggle. The copied
// acknowledgement clears itself after BridgeConfig.CopiedResetAfter.
type Bridge struct {
	clock      clock.Clock
	clipboard  Clipboard
	revealer   Revealer
	resetAfter time.Duration
	metrics    *Metrics
	audit      *auditDispatcher
	log        logrus.FieldLogger
	onChange   func(BridgeState)

	mu       sync.Mutex
	copied   bool
	revealed bool
	gen      uint64
	timer    clock.Timer
}

// NewBridge returns a bridge for one view. onChange, when non-nil, is called
// after every state change, including the automatic reset of Copied. It may
// run on a timer goroutine.
func (e *Engine) NewBridge(onChange func(BridgeState)) (*Bridge, error) {
	if e == nil || e.scheduler == nil {
		return nil, ErrEngineNotReady
	}
	return &Bridge{
		clock:      e.clock,
		clipboard:  e.clipboard,
		revealer:   e.revealer,
		resetAfter: e.config.Bridge.CopiedResetAfter,
		metrics:    e.metrics,
		audit:      e.audit,
		log:        e.log,
		onChange:   onChange,
	}, nil
}

// State returns the current presentation state.
func (b *Bridge) State() BridgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BridgeState{Copied: b.copied, Revealed: b.revealed}
}

// OnCopy hands code to the clipboard and raises the copied acknowledgement.
// displayID is only used for audit correlation and may be empty.
func (b *Bridge) OnCopy(ctx context.Context, displayID, code string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.clipboard == nil {
		b.copyFailed(ctx, displayID, ErrClipboardUnavailable)
		return ErrClipboardUnavailable
	}
	if err := b.clipboard.WriteText(ctx, code); err != nil {
		err = fmt.Errorf("%w: %v", ErrClipboardUnavailable, err)
		b.copyFailed(ctx, displayID, err)
		return err
	}

	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.copied = true
	b.gen++
	gen := b.gen
	b.timer = b.clock.AfterFunc(b.resetAfter, func() { b.resetCopied(gen) })
	state := BridgeState{Copied: b.copied, Revealed: b.revealed}
	b.mu.Unlock()

	b.metrics.Inc(MetricCodeCopied)
	b.audit.Emit(ctx, newAuditEvent(auditEventCodeCopied, true, "", displayID, nil, nil))
	b.notify(state)
	return nil
}

func (b *Bridge) copyFailed(ctx context.Context, displayID string, err error) {
	b.metrics.Inc(MetricCopyFailed)
	b.audit.Emit(ctx, newAuditEvent(auditEventCopyFailed, false, "", displayID, err, nil))
	b.log.WithError(err).WithField("display_id", displayID).Warn("goOTP: copy failed")
}

func (b *Bridge) resetCopied(gen uint64) {
	b.mu.Lock()
	if b.gen != gen || !b.copied {
		b.mu.Unlock()
		return
	}
	b.copied = false
	b.timer = nil
	state := BridgeState{Copied: b.copied, Revealed: b.revealed}
	b.mu.Unlock()
	b.notify(state)
}

// OnReveal sets whether sensitive fields are shown in clear. Rolling codes are
// unaffected either way.
func (b *Bridge) OnReveal(revealed bool) {
	b.mu.Lock()
	if b.revealed == revealed {
		b.mu.Unlock()
		return
	}
	b.revealed = revealed
	state := BridgeState{Copied: b.copied, Revealed: b.revealed}
	b.mu.Unlock()

	if b.revealer != nil {
		b.revealer.SetRevealed(revealed)
	}
	b.metrics.Inc(MetricRevealToggled)
	b.audit.Emit(context.Background(), newAuditEvent(auditEventRevealToggled, true, "", "", nil, map[string]string{
		"revealed": fmt.Sprint(revealed),
	}))
	b.notify(state)
}

// ToggleReveal flips the reveal state and returns the new value.
func (b *Bridge) ToggleReveal() bool {
	b.mu.Lock()
	next := !b.revealed
	b.mu.Unlock()
	b.OnReveal(next)
	return next
}

// Render returns value as it should be displayed for a field of kind.
func (b *Bridge) Render(kind FieldKind, value string) string {
	if kind != FieldSensitive || value == "" {
		return value
	}
	b.mu.Lock()
	revealed := b.revealed
	b.mu.Unlock()
	if revealed {
		return value
	}
	return strings.Repeat(maskGlyph, maskedLength)
}

// Close cancels a pending copied reset.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.gen++
}

func (b *Bridge) notify(state BridgeState) {
	if b.onChange != nil {
		b.onChange(state)
	}
}
