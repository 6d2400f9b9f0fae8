// Package middleware adapts goGuard.Engine to net/http.
//
// # Handlers
//
//   - [Pipeline]: IP block, throttle and suspicious activity checks, then
//     hardening headers.
//   - [SecureHeaders]: hardening headers only.
//   - [CSRF]: double-submit cookie enforcement.
//   - [RequireAuth], [OptionalAuth]: bearer access token verification.
//   - [RequirePermission], [RequireRole]: authorization after RequireAuth.
//   - [RequestID]: request correlation.
//
// This package translates HTTP semantics into Engine calls. It does not
// parse tokens, touch the store or make security decisions itself, and
// error responses carry only the generic messages from [MessageFor].
package middleware
