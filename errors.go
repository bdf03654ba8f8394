package goOTP

import "errors"

var (
	// ErrInvalidSecret is returned when a shared secret decodes to an empty key.
	ErrInvalidSecret = errors.New("invalid otp secret")
	// ErrInvalidParameters is returned when digits, period, skew or timestamp fall outside supported ranges.
	ErrInvalidParameters = errors.New("invalid otp parameters")
	// ErrEngineNotReady is returned when an Engine method is called on a nil or partially built engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrCodeInvalid is returned by Verify when the submitted code matches no accepted window.
	ErrCodeInvalid = errors.New("invalid otp code")
	// ErrCodeReplayed is returned by Verify when a code for an already accepted window is submitted again.
	ErrCodeReplayed = errors.New("otp code already used")
	// ErrVerifyRateLimited is returned by Verify when the item exceeded its failed-attempt budget.
	ErrVerifyRateLimited = errors.New("otp verification rate limited")
	// ErrVerifyUnavailable is returned by Verify when the limiter or replay backend cannot be reached.
	ErrVerifyUnavailable = errors.New("otp verification backend unavailable")
	// ErrInvalidKeyURI is returned by ParseKeyURI for malformed or non-TOTP otpauth URIs.
	ErrInvalidKeyURI = errors.New("invalid otpauth uri")
	// ErrClipboardUnavailable is returned by Bridge.OnCopy when no clipboard collaborator accepted the code.
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
	// ErrDisplayClosed is returned when starting a display whose scheduler was closed.
	ErrDisplayClosed = errors.New("display scheduler closed")
)

func isInvalidSecret(err error) bool {
	return errors.Is(err, ErrInvalidSecret)
}

func isInvalidParameters(err error) bool {
	return errors.Is(err, ErrInvalidParameters)
}
