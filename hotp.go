package goOTP

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
)

const (
	minHOTPDigits = 1
	maxHOTPDigits = 9
)

var pow10 = [...]uint32{1, 10, 100, 1000, 10000, 100000, 1000000, 10000000, 100000000, 1000000000}

// HMACFunc computes HMAC-SHA1(key, msg) and returns the 20-byte digest.
//
// It exists so the engine can run on a platform-provided primitive; any
// implementation must be byte-compatible with crypto/hmac over crypto/sha1.
type HMACFunc func(key, msg []byte) []byte

// HMACSHA1 is the default HMACFunc backed by the standard library.
func HMACSHA1(key, msg []byte) []byte {
	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg)
	return mac.Sum(nil)
}

// HOTP computes the RFC 4226 code for key and counter with the default HMACFunc.
//
// HOTP returns ErrInvalidSecret for an empty key and ErrInvalidParameters when
// digits is outside [1, 9].
func HOTP(key []byte, counter uint64, digits int) (string, error) {
	return hotpCode(HMACSHA1, key, counter, digits)
}

func hotpCode(mac HMACFunc, key []byte, counter uint64, digits int) (string, error) {
	if len(key) == 0 {
		return "", ErrInvalidSecret
	}
	if digits < minHOTPDigits || digits > maxHOTPDigits {
		return "", fmt.Errorf("%w: digits %d outside [%d, %d]", ErrInvalidParameters, digits, minHOTPDigits, maxHOTPDigits)
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	sum := mac(key, msg[:])
	if len(sum) != sha1.Size {
		return "", fmt.Errorf("%w: hmac digest must be %d bytes, got %d", ErrInvalidParameters, sha1.Size, len(sum))
	}

	offset := sum[sha1.Size-1] & 0x0f
	bin := uint32(sum[offset]&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	return fmt.Sprintf("%0*d", digits, bin%pow10[digits]), nil
}
