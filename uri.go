package goOTP

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// KeyURI is the content of an otpauth://totp/ provisioning URI.
type KeyURI struct {
	Issuer      string
	AccountName string
	// Secret is the Base32 shared secret exactly as carried by the URI.
	Secret string
	Params Params
}

// Kind is ItemAuthenticator: imported keys keep their own digits and period.
func (k KeyURI) Kind() ItemKind {
	return ItemAuthenticator
}

// ParseKeyURI parses an otpauth URI. Only TOTP keys using HMAC-SHA1 are
// accepted. Digits and period are validated, never clamped.
func ParseKeyURI(uri string) (KeyURI, error) {
	key, err := otp.NewKeyFromURL(strings.TrimSpace(uri))
	if err != nil {
		return KeyURI{}, fmt.Errorf("%w: %v", ErrInvalidKeyURI, err)
	}
	u, err := url.Parse(key.URL())
	if err != nil {
		return KeyURI{}, fmt.Errorf("%w: %v", ErrInvalidKeyURI, err)
	}
	if !strings.EqualFold(u.Scheme, "otpauth") {
		return KeyURI{}, fmt.Errorf("%w: scheme must be otpauth", ErrInvalidKeyURI)
	}
	if key.Type() != "totp" {
		return KeyURI{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidKeyURI, key.Type())
	}

	q := u.Query()
	if alg := q.Get("algorithm"); alg != "" && !strings.EqualFold(alg, "SHA1") {
		return KeyURI{}, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidParameters, alg)
	}

	secret := key.Secret()
	if secret == "" {
		return KeyURI{}, fmt.Errorf("%w: missing secret", ErrInvalidKeyURI)
	}
	raw := DecodeSecret(secret)
	empty := len(raw) == 0
	clear(raw)
	if empty {
		return KeyURI{}, ErrInvalidSecret
	}

	p := DefaultParams()
	if v := q.Get("digits"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return KeyURI{}, fmt.Errorf("%w: digits %q", ErrInvalidParameters, v)
		}
		p.Digits = n
	}
	if v := q.Get("period"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return KeyURI{}, fmt.Errorf("%w: period %q", ErrInvalidParameters, v)
		}
		p.Period = n
	}
	if err := p.Validate(); err != nil {
		return KeyURI{}, err
	}

	return KeyURI{
		Issuer:      key.Issuer(),
		AccountName: key.AccountName(),
		Secret:      secret,
		Params:      p,
	}, nil
}

// ProvisionURI builds an otpauth://totp/ URI for secret. The secret is
// re-encoded in canonical unpadded Base32.
func ProvisionURI(issuer, account, secret string, p Params) (string, error) {
	p = p.withDefaults()
	if err := p.Validate(); err != nil {
		return "", err
	}
	if strings.TrimSpace(issuer) == "" || strings.TrimSpace(account) == "" {
		return "", fmt.Errorf("%w: issuer and account are required", ErrInvalidKeyURI)
	}
	raw := DecodeSecret(secret)
	defer clear(raw)
	if len(raw) == 0 {
		return "", ErrInvalidSecret
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
		Period:      uint(p.Period),
		Secret:      raw,
		Digits:      otp.Digits(p.Digits),
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyURI, err)
	}
	return key.String(), nil
}
