// Package session issues token pairs and persists the refresh records that
// keep refresh tokens alive.
//
// # Record layout
//
// Each issued refresh token owns one record at
//
//	refresh_token:{userId}:{issuedAtMillis}-{random}
//
// with a TTL equal to the refresh lifetime. The suffix travels in the refresh
// token's jti claim, so a refresh looks up exactly its own record
// and several devices can hold sessions for the same user. Revoking a user
// deletes every record under the user's prefix.
//
// # Architecture boundaries
//
// This package owns the [Store] and the [Service]. It does NOT authenticate
// credentials, evaluate permissions, or rate-limit callers. Those belong to
// the Engine.
//
// # What this package must NOT do
//
//   - Import goGuard or permission (no upward imports).
//   - Rotate or modify a record during refresh.
//   - Store token strings in records.
package session
