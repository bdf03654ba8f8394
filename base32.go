package goOTP

const base32Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var base32Index = func() [256]int8 {
	var idx [256]int8
	for i := range idx {
		idx[i] = -1
	}
	for i := 0; i < len(base32Alphabet); i++ {
		c := base32Alphabet[i]
		idx[c] = int8(i)
		if c >= 'A' && c <= 'Z' {
			idx[c+('a'-'A')] = int8(i)
		}
	}
	return idx
}()

// DecodeSecret decodes a human-entered Base32 shared secret into key bytes.
//
// Input is case-insensitive. Every character outside the RFC 4648 alphabet
// (whitespace, hyphens, '=' padding, anything else) is skipped. Bits are
// accumulated five at a time and regrouped into bytes; trailing bits that do
// not complete a byte are dropped. Input without a single valid character
// yields an empty, non-nil slice; rejecting an empty key is the caller's job.
func DecodeSecret(secret string) []byte {
	valid := 0
	for i := 0; i < len(secret); i++ {
		if base32Index[secret[i]] >= 0 {
			valid++
		}
	}

	out := make([]byte, 0, valid*5/8)
	var buffer uint32
	bits := 0
	for i := 0; i < len(secret); i++ {
		v := base32Index[secret[i]]
		if v < 0 {
			continue
		}
		buffer = buffer<<5 | uint32(v)
		bits += 5
		if bits >= 8 {
			bits -= 8
			out = append(out, byte(buffer>>uint(bits)))
			buffer &= (1 << uint(bits)) - 1
		}
	}
	return out
}
