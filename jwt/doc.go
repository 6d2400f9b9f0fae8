// Package jwt signs and verifies goGuard session tokens (HS256, one secret per
// token kind).
package jwt
