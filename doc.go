// Package goGuard is a security toolkit for HTTP services: password hashing,
// HS256 access and refresh tokens backed by per-session refresh records,
// single-use password reset tokens, brute-force lockout, per-IP throttling
// and blocking, suspicious client detection, CSRF tokens and role-based
// permissions.
//
// An [Engine] is assembled once through [Builder.Build] and is safe for
// concurrent use. Every piece of state lives in a key-value store (Redis in
// production), a caller-supplied [UserProvider] and a role store, so any
// number of engine instances may share one backend.
//
// # Architecture boundaries
//
// goGuard is the public surface. It exposes [Engine], [Builder], [Config]
// and value types. Flow orchestration, limiter records and audit dispatch
// live under internal/ and are never exported. HTTP adapters live in the
// middleware package.
//
// # Failure policy
//
// VerifyAccess never touches the store. Limiters follow their own FailOpen
// flag; permission checks deny on store failure unless
// Config.Permission.FailOpen is set. Store failures that are surfaced match
// [ErrStoreUnavailable] with errors.Is.
package goGuard
