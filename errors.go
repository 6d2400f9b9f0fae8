package goGuard

import (
	"errors"

	"github.com/MrEthical07/goGuard/csrf"
	"github.com/MrEthical07/goGuard/internal/limiters"
	"github.com/MrEthical07/goGuard/internal/record"
	"github.com/MrEthical07/goGuard/internal/stores"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/password"
	"github.com/MrEthical07/goGuard/permission"
	"github.com/MrEthical07/goGuard/session"
)

// Errors originating in leaf packages. They are the same values, so
// errors.Is works against either name.
var (
	ErrEmptyInput       = password.ErrEmptyInput
	ErrMalformedHash    = password.ErrMalformedHash
	ErrMalformedToken   = jwt.ErrMalformedToken
	ErrInvalidSignature = jwt.ErrInvalidSignature
	ErrExpired          = jwt.ErrExpired
	ErrWrongTokenType   = jwt.ErrWrongTokenType
	ErrRecordNotFound   = session.ErrRecordNotFound
	ErrInvalidCSRF      = csrf.ErrInvalidToken
	ErrRateLimited      = limiters.ErrRateLimited
	ErrLocked           = limiters.ErrLocked
	ErrBlocked          = limiters.ErrBlocked
	ErrMalformedRecord  = record.ErrMalformed
	ErrResetInvalid     = stores.ErrResetInvalid
	ErrUnknownRole      = permission.ErrUnknownRole
)

var (
	// ErrUnauthorized is returned when no valid access token is present.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials covers unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserProvider implementations.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned by UserProvider.CreateUser for a taken email.
	ErrAccountExists = errors.New("account already exists")
	// ErrPasswordPolicy is returned when a new password violates length rules
	// or equals the current one.
	ErrPasswordPolicy = errors.New("password does not meet policy")
	// ErrPermissionDenied is returned when a permission or role check fails.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrStoreUnavailable wraps every key-value failure that reaches a caller.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrSessionInvalidationFailed is joined with the store error when
	// revoking sessions after a credential change fails.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrPasswordResetDisabled is returned when reset is switched off.
	ErrPasswordResetDisabled = errors.New("password reset disabled")
	// ErrEngineNotReady is returned by a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
