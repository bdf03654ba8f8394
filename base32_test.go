package goOTP

import (
	"bytes"
	"testing"
)

func TestDecodeSecretKnownValues(t *testing.T) {
	cases := []struct {
		name   string
		secret string
		want   []byte
	}{
		{"rfc key", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", []byte("12345678901234567890")},
		{"deadbeef", "JBSWY3DPEHPK3PXP", append([]byte("Hello!"), 0xde, 0xad, 0xbe, 0xef)},
		{"lowercase", "jbswy3dpehpk3pxp", append([]byte("Hello!"), 0xde, 0xad, 0xbe, 0xef)},
		{"grouped with spaces", "JBSW Y3DP EHPK 3PXP", append([]byte("Hello!"), 0xde, 0xad, 0xbe, 0xef)},
		{"hyphens and padding", "MZXW-6===", []byte("foo")},
		{"trailing bits dropped", "MZXW6YQ", []byte("foob")},
		{"two chars one byte", "MY", []byte("f")},
	}

	for _, tc := range cases {
		got := DecodeSecret(tc.secret)
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("%s: DecodeSecret(%q) = %x, want %x", tc.name, tc.secret, got, tc.want)
		}
	}
}

func TestDecodeSecretEmptyResults(t *testing.T) {
	for _, secret := range []string{"", "   ", "====", "0189!@#", "M", "é"} {
		got := DecodeSecret(secret)
		if got == nil {
			t.Fatalf("DecodeSecret(%q) returned nil, want empty slice", secret)
		}
		if len(got) != 0 {
			t.Fatalf("DecodeSecret(%q) = %x, want empty", secret, got)
		}
	}
}

func TestDecodeSecretDeterministic(t *testing.T) {
	a := DecodeSecret("JBSWY3DPEHPK3PXP")
	b := DecodeSecret("JBSWY3DPEHPK3PXP")
	if !bytes.Equal(a, b) {
		t.Fatalf("expected identical output, got %x and %x", a, b)
	}
	a[0] ^= 0xff
	if bytes.Equal(a, DecodeSecret("JBSWY3DPEHPK3PXP")) {
		t.Fatal("DecodeSecret must return a fresh buffer per call")
	}
}
