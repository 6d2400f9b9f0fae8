// Package password hashes and verifies login credentials.
//
// # Output formats
//
// The default [PBKDF2] hasher stores credentials as
//
//	base64(salt):base64(derivedKey)
//
// using PBKDF2-HMAC-SHA256 with a fresh 32-byte salt per hash. The [Argon2]
// hasher stores PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Both report [Hasher.NeedsUpgrade] when a stored credential was produced with
// weaker parameters, so the caller can re-hash on the next successful login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (minimum
// length, reuse) is enforced by the Engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goGuard package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
