// Package goOTP derives RFC 6238 time-based one-time passwords and keeps
// on-screen codes and their countdowns in step with the clock.
//
// The package is designed for concurrent use: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goOTP is the public surface. It exposes [Engine], [Builder], [Config], the
// pure derivation functions ([DecodeSecret], [HOTP], [TOTP], [VerifyAt]) and
// the display types ([Scheduler], [Display], [Bridge]). Audit dispatch,
// metrics storage, attempt limiting and replay state live under internal/.
//
// # What this package must NOT do
//
//   - Store, log or audit shared secrets, decoded keys or codes.
//   - Read the wall clock outside the injected clock.Clock.
//   - Accept codes from neighbouring windows when rendering; skew only
//     applies to Verify.
//
// # Performance contract
//
// A display tick reads the clock once for every running display and derives a
// code only when the time-step counter changed. Verify costs at most
// 2*Skew+1 HMAC computations and, when configured, three Redis round-trips.
package goOTP
