package goOTP

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/stores"
	"github.com/sirupsen/logrus"
)

// VerifyAt checks code against the windows of secret around t, accepting up to
// skew windows on either side. It returns the matched counter. A code of the
// wrong length or with non-digit characters is a mismatch, not an error.
func VerifyAt(secret, code string, p Params, t time.Time, skew int) (uint64, bool, error) {
	return defaultDeriver.VerifyAt(secret, code, p, t, skew)
}

// VerifyAt is the Deriver form of the package-level VerifyAt.
func (d *Deriver) VerifyAt(secret, code string, p Params, t time.Time, skew int) (uint64, bool, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return 0, false, err
	}
	if skew < 0 || skew > maxVerifySkew {
		return 0, false, fmt.Errorf("%w: skew %d outside [0, %d]", ErrInvalidParameters, skew, maxVerifySkew)
	}
	key := DecodeSecret(secret)
	defer clear(key)
	if len(key) == 0 {
		return 0, false, ErrInvalidSecret
	}
	current, err := Counter(t.Unix(), p.Period)
	if err != nil {
		return 0, false, err
	}
	if !wellFormedCode(code, p.Digits) {
		return 0, false, nil
	}

	mac := d.mac
	if mac == nil {
		mac = HMACSHA1
	}
	for i := -skew; i <= skew; i++ {
		if i < 0 && uint64(-i) > current {
			continue
		}
		counter := uint64(int64(current) + int64(i))
		candidate, err := hotpCode(mac, key, counter, p.Digits)
		if err != nil {
			return 0, false, err
		}
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 {
			return counter, true, nil
		}
	}
	return 0, false, nil
}

func wellFormedCode(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// verifier applies the engine's attempt limiter and replay guard around
// Deriver.VerifyAt. Both collaborators are optional.
type verifier struct {
	deriver *Deriver
	limiter *limiters.AttemptLimiter
	replay  *stores.ReplayGuard
	skew    int
}

// replayTTL keeps a record until no counter at or below it can be accepted
// again.
func (v *verifier) replayTTL(period int) time.Duration {
	return time.Duration((2*v.skew+2)*period) * time.Second
}

// Verify checks code for itemID at the engine clock's current time and returns
// the accepted counter.
//
// Failed attempts are counted per item when attempt limiting is configured;
// ErrVerifyRateLimited is returned without comparing the code once the budget
// is spent. With replay protection enabled a code is accepted at most once
// and never after a code of a later window was accepted for the same item.
func (e *Engine) Verify(ctx context.Context, itemID, secret string, p Params, code string) (uint64, error) {
	if e == nil || e.verifier == nil {
		return 0, ErrEngineNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	v := e.verifier
	p = e.fillParams(p)
	log := e.log.WithField("item_id", itemID)

	if err := v.limiter.Check(ctx, itemID); err != nil {
		err = mapLimiterErr(err)
		if errors.Is(err, ErrVerifyRateLimited) {
			e.metricInc(MetricVerifyRateLimited)
		} else {
			log.WithError(err).Warn("goOTP: attempt limiter unavailable")
		}
		e.emitVerifyAudit(ctx, itemID, err)
		return 0, err
	}

	counter, ok, err := v.deriver.VerifyAt(secret, code, p, e.clock.Now(), v.skew)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSecret):
			e.metricInc(MetricInvalidSecret)
		case errors.Is(err, ErrInvalidParameters):
			e.metricInc(MetricInvalidParameters)
		}
		e.emitVerifyAudit(ctx, itemID, err)
		return 0, err
	}
	if !ok {
		return 0, e.verifyFailed(ctx, itemID, ErrCodeInvalid)
	}

	if v.replay != nil {
		if err := v.replay.Accept(ctx, itemID, counter, v.replayTTL(p.Period)); err != nil {
			if errors.Is(err, stores.ErrReplayed) {
				e.metricInc(MetricVerifyReplay)
				e.emitVerifyAudit(ctx, itemID, ErrCodeReplayed)
				return 0, ErrCodeReplayed
			}
			log.WithError(err).Warn("goOTP: replay guard unavailable")
			err = fmt.Errorf("%w: %v", ErrVerifyUnavailable, err)
			e.emitVerifyAudit(ctx, itemID, err)
			return 0, err
		}
	}

	if err := v.limiter.Reset(ctx, itemID); err != nil {
		log.WithError(err).Warn("goOTP: attempt limiter reset failed")
	}
	e.metricInc(MetricVerifySuccess)
	e.emitVerifyAudit(ctx, itemID, nil)
	log.WithField("counter", counter).Debug("goOTP: code accepted")
	return counter, nil
}

func (e *Engine) verifyFailed(ctx context.Context, itemID string, cause error) error {
	e.metricInc(MetricVerifyFailure)
	if err := e.verifier.limiter.RecordFailure(ctx, itemID); err != nil && !errors.Is(err, limiters.ErrRateLimited) {
		e.log.WithFields(logrus.Fields{"item_id": itemID}).WithError(err).Warn("goOTP: attempt limiter unavailable")
	}
	e.emitVerifyAudit(ctx, itemID, cause)
	return cause
}

func (e *Engine) emitVerifyAudit(ctx context.Context, itemID string, err error) {
	eventType := auditEventVerifySuccess
	if err != nil {
		eventType = auditEventVerifyFailure
	}
	e.audit.Emit(ctx, newAuditEvent(eventType, err == nil, itemID, "", err, map[string]string{
		"skew": strconv.Itoa(e.verifier.skew),
	}))
}

func mapLimiterErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, limiters.ErrRateLimited):
		return ErrVerifyRateLimited
	default:
		return fmt.Errorf("%w: %v", ErrVerifyUnavailable, err)
	}
}

// AttemptsRemaining returns how many failed attempts itemID may still record
// before it is rate limited. ok is false when attempt limiting is not
// configured.
func (e *Engine) AttemptsRemaining(ctx context.Context, itemID string) (remaining int, ok bool, err error) {
	if e == nil || e.verifier == nil {
		return 0, false, ErrEngineNotReady
	}
	if e.verifier.limiter == nil {
		return 0, false, nil
	}
	n, err := e.verifier.limiter.Remaining(ctx, itemID)
	if err != nil {
		return 0, true, mapLimiterErr(err)
	}
	return n, true, nil
}

// LastAccepted returns the counter of the last code accepted for itemID. ok is
// false when replay protection is off or nothing was accepted within the
// replay window.
func (e *Engine) LastAccepted(ctx context.Context, itemID string) (counter uint64, ok bool, err error) {
	if e == nil || e.verifier == nil {
		return 0, false, ErrEngineNotReady
	}
	if e.verifier.replay == nil {
		return 0, false, nil
	}
	counter, ok, err = e.verifier.replay.LastAccepted(ctx, itemID)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrVerifyUnavailable, err)
	}
	return counter, ok, nil
}

// ResetItem clears the failed-attempt counter and the replay record of itemID.
// Call it after the item's secret is rotated, otherwise codes of the new
// secret in the current window are rejected as replays.
func (e *Engine) ResetItem(ctx context.Context, itemID string) error {
	if e == nil || e.verifier == nil {
		return ErrEngineNotReady
	}
	if err := e.verifier.limiter.Reset(ctx, itemID); err != nil {
		return mapLimiterErr(err)
	}
	if e.verifier.replay != nil {
		if err := e.verifier.replay.Forget(ctx, itemID); err != nil {
			return fmt.Errorf("%w: %v", ErrVerifyUnavailable, err)
		}
	}
	e.log.WithField("item_id", itemID).Info("goOTP: verification state reset")
	return nil
}
