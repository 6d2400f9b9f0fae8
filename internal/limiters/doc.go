// Package limiters implements the key-value backed brute-force and abuse
// defenses.
//
// # Limiters
//
//   - [LoginLimiter]: per-email failure count with a lockout.
//   - [IPThrottle]: fixed-window request budget per client IP.
//   - [IPBlocker]: manual and automatic IP blocks.
//   - [IPFailureCounter]: failed logins per client IP.
//   - [SuspiciousDetector]: bot signatures and abuse signals, auto-blocking.
//   - [ResetLimiter]: password-reset requests per user.
//
// Each limiter carries a FailOpen flag. A fail-open limiter logs store
// failures at Warn and reports "not limited"; a fail-closed one returns
// [ErrStoreUnavailable].
//
// # Architecture boundaries
//
// Each limiter owns its own key namespace. Thresholds come from Config
// structs supplied at construction time. Counters are read-modify-write and
// may under-count under concurrency.
//
// # What this package must NOT do
//
//   - Import goGuard or any sibling internal package except internal/record.
//   - Make policy decisions beyond counting. Callers decide consequences.
package limiters
