// Package security builds the read-only security posture report exposed by
// Engine.SecurityReport.
//
// # What this package must NOT do
//
//   - Import goOTP or hold references to secrets, clients or live state.
package security
