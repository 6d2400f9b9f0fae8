// Package kv defines the narrow key-value contract goGuard uses for session,
// throttling and one-time-token bookkeeping, plus a Redis implementation.
//
// # Contract
//
// A [Store] offers get / put-with-expiry / delete / list-by-prefix and an
// atomic take (get-and-delete) used for single-use records. Missing keys are
// reported as [ErrNotFound]; every transport failure wraps [ErrUnavailable]
// so callers can apply their fail-open or fail-closed policy with errors.Is.
//
// # What this package must NOT do
//
//   - Interpret record payloads (encoding lives in internal/record).
//   - Retry failed commands; callers decide policy.
package kv
