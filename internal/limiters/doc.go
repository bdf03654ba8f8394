// Package limiters provides the Redis-backed failed-attempt limiter used by
// code verification.
//
// # Limiters
//
//   - [AttemptLimiter] counts failed verifications per item within a cooldown
//     window and refuses further attempts once the budget is spent.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # Architecture boundaries
//
// The limiter owns its Redis key namespace and error types. Thresholds come
// from the Config supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package.
//   - See secrets or codes. Keys are built from item identifiers only.
package limiters
