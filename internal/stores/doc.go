// Package stores provides the Redis-backed replay guard used by code
// verification.
//
// # Design
//
// The guard persists the last accepted time-step counter per item under a
// TTL that outlives every window the verifier can still accept. Accepting a
// counter is a WATCH/MULTI optimistic transaction with bounded retry on
// contention, so two concurrent verifications of the same code cannot both
// succeed.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for accepted
// counters. It does NOT derive or compare codes; that belongs to the root
// package verifier.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package.
//   - Store secrets or codes.
package stores
