// Package clock abstracts wall-clock reads, repeating tickers and one-shot timers
// so countdown scheduling can run against virtual time in tests.
//
// # Components
//
//   - [Clock]: the interface consumed by goOTP (Now, NewTicker, AfterFunc).
//   - [Real]: the production clock backed by package time.
//   - [Fake]: a manually advanced clock whose tickers and timers fire only on
//     [Fake.Advance] or [Fake.Set].
//
// # What this package must NOT do
//
//   - Import goOTP or any internal package.
//   - Start goroutines of its own in [Fake]; firing happens on the caller's goroutine.
package clock
