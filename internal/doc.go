// Package internal holds helpers private to goGuard. The root package only
// provides RandomToken, used for CSRF and password reset tokens.
//
// Sub-packages:
//
//   - audit: async event dispatch and sinks
//   - config: goguard-server configuration loading
//   - flows: the orchestration behind every Engine operation
//   - httpapi: goguard-server's JSON routes
//   - limiters: login lockout, IP throttle, IP block and suspicious activity
//   - record: versioned JSON records stored in the key-value store
//   - security: the security posture report
//   - stores: the single-use password reset token store
//   - userstore: Postgres and in-memory UserProvider implementations
package internal
