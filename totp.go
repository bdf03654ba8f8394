package goOTP

import (
	"fmt"
	"time"
)

const (
	// DefaultDigits is the code length used when Params.Digits is zero.
	DefaultDigits = 6
	// DefaultPeriod is the window length in seconds used when Params.Period is zero.
	DefaultPeriod = 30
	// MinDigits and MaxDigits bound the code length accepted for TOTP items.
	MinDigits = 6
	MaxDigits = 8
)

// Params is the per-item time-step configuration. Zero fields fall back to
// DefaultDigits and DefaultPeriod; explicit out-of-range values are rejected,
// never clamped.
type Params struct {
	Digits int `json:"digits,omitempty" yaml:"digits,omitempty"`
	Period int `json:"period,omitempty" yaml:"period,omitempty"`
}

// DefaultParams returns the RFC 6238 defaults (6 digits, 30 seconds).
func DefaultParams() Params {
	return Params{Digits: DefaultDigits, Period: DefaultPeriod}
}

func (p Params) withDefaults() Params {
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// Validate reports ErrInvalidParameters when digits or period are unsupported.
func (p Params) Validate() error {
	p = p.withDefaults()
	if p.Digits < MinDigits || p.Digits > MaxDigits {
		return fmt.Errorf("%w: digits %d outside [%d, %d]", ErrInvalidParameters, p.Digits, MinDigits, MaxDigits)
	}
	if p.Period <= 0 {
		return fmt.Errorf("%w: period %d must be > 0", ErrInvalidParameters, p.Period)
	}
	return nil
}

// Counter maps a Unix timestamp to its time-step counter, floor(unix/period).
func Counter(unix int64, period int) (uint64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: period %d must be > 0", ErrInvalidParameters, period)
	}
	if unix < 0 {
		return 0, fmt.Errorf("%w: timestamp %d before epoch", ErrInvalidParameters, unix)
	}
	return uint64(unix) / uint64(period), nil
}

// Remaining returns the seconds left in the window containing unix:
// period - (unix mod period), in [1, period]. A non-positive period yields 0.
func Remaining(unix int64, period int) int {
	if period <= 0 {
		return 0
	}
	m := unix % int64(period)
	if m < 0 {
		m += int64(period)
	}
	return period - int(m)
}

// TOTP derives the RFC 6238 code of secret at unix with the default HMACFunc.
// Zero period or digits select the defaults.
func TOTP(secret string, unix int64, period, digits int) (string, error) {
	return defaultDeriver.CodeAt(secret, unix, Params{Digits: digits, Period: period})
}

// Window is one validity window of a code: [ValidFrom, ValidUntil).
type Window struct {
	Code       string
	Counter    uint64
	Period     int
	Remaining  int
	ValidFrom  time.Time
	ValidUntil time.Time
}

// Deriver turns shared secrets into time-step codes. It holds no per-secret
// state and is safe for concurrent use.
type Deriver struct {
	mac HMACFunc
}

var defaultDeriver = NewDeriver(nil)

// NewDeriver returns a Deriver using mac, or HMACSHA1 when mac is nil.
func NewDeriver(mac HMACFunc) *Deriver {
	if mac == nil {
		mac = HMACSHA1
	}
	return &Deriver{mac: mac}
}

// CodeAt returns the code of secret for the window containing unix.
func (d *Deriver) CodeAt(secret string, unix int64, p Params) (string, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return "", err
	}
	counter, err := Counter(unix, p.Period)
	if err != nil {
		return "", err
	}
	return d.codeForCounter(secret, counter, p.Digits)
}

// Window returns the code and countdown of the window containing t.
func (d *Deriver) Window(secret string, p Params, t time.Time) (Window, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Window{}, err
	}
	unix := t.Unix()
	counter, err := Counter(unix, p.Period)
	if err != nil {
		return Window{}, err
	}
	code, err := d.codeForCounter(secret, counter, p.Digits)
	if err != nil {
		return Window{}, err
	}

	from := time.Unix(int64(counter)*int64(p.Period), 0)
	return Window{
		Code:       code,
		Counter:    counter,
		Period:     p.Period,
		Remaining:  Remaining(unix, p.Period),
		ValidFrom:  from,
		ValidUntil: from.Add(time.Duration(p.Period) * time.Second),
	}, nil
}

// Next returns the window that follows the one containing t, so a caller can
// show the upcoming code during the last second of the current one.
func (d *Deriver) Next(secret string, p Params, t time.Time) (Window, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return Window{}, err
	}
	w, err := d.Window(secret, p, t.Add(time.Duration(p.Period)*time.Second))
	if err != nil {
		return Window{}, err
	}
	w.Remaining = p.Period
	return w, nil
}

func (d *Deriver) codeForCounter(secret string, counter uint64, digits int) (string, error) {
	key := DecodeSecret(secret)
	defer clear(key)
	if len(key) == 0 {
		return "", ErrInvalidSecret
	}
	mac := d.mac
	if mac == nil {
		mac = HMACSHA1
	}
	return hotpCode(mac, key, counter, digits)
}
