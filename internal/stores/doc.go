// Package stores provides key-value backed, short-lived record stores for
// security-sensitive flows. Today that is the single-use password reset
// token.
//
// # Design
//
// Records are tagged JSON envelopes written with a TTL. Consumption uses the
// store's atomic Take, so two concurrent verifications of the same token
// cannot both succeed.
//
// # Architecture boundaries
//
// This package owns persistence of one-time tokens and consults the reset
// limiter before issuing. It does NOT hash passwords, revoke sessions, or
// make authentication decisions. Those belong to the flow functions in
// internal/flows.
//
// # What this package must NOT do
//
//   - Import goGuard.
//   - Log plaintext tokens.
package stores
