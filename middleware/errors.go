package middleware

import (
	"errors"
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
)

// StatusFor maps an engine error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, goGuard.ErrInvalidCSRF),
		errors.Is(err, goGuard.ErrPermissionDenied),
		errors.Is(err, goGuard.ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, goGuard.ErrRateLimited),
		errors.Is(err, goGuard.ErrLocked):
		return http.StatusTooManyRequests
	case errors.Is(err, goGuard.ErrUnauthorized),
		errors.Is(err, goGuard.ErrInvalidCredentials),
		errors.Is(err, goGuard.ErrMalformedToken),
		errors.Is(err, goGuard.ErrInvalidSignature),
		errors.Is(err, goGuard.ErrExpired),
		errors.Is(err, goGuard.ErrWrongTokenType),
		errors.Is(err, goGuard.ErrRecordNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, goGuard.ErrAccountExists):
		return http.StatusConflict
	case errors.Is(err, goGuard.ErrPasswordPolicy),
		errors.Is(err, goGuard.ErrEmptyInput),
		errors.Is(err, goGuard.ErrUnknownRole),
		errors.Is(err, goGuard.ErrResetInvalid):
		return http.StatusBadRequest
	case errors.Is(err, goGuard.ErrPasswordResetDisabled):
		return http.StatusNotFound
	case errors.Is(err, goGuard.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the client-safe message for err. Internal details
// never reach the response body.
func MessageFor(err error) string {
	switch {
	case errors.Is(err, goGuard.ErrInvalidCSRF):
		return "Invalid CSRF token"
	case errors.Is(err, goGuard.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, goGuard.ErrLocked):
		return "Account temporarily locked"
	case errors.Is(err, goGuard.ErrRecordNotFound):
		return "Failed to refresh token"
	case errors.Is(err, goGuard.ErrResetInvalid):
		return "Invalid or expired reset token"
	case errors.Is(err, goGuard.ErrAccountExists):
		return "Account already exists"
	case errors.Is(err, goGuard.ErrPasswordPolicy), errors.Is(err, goGuard.ErrEmptyInput):
		return "Password does not meet requirements"
	}

	switch StatusFor(err) {
	case http.StatusUnauthorized:
		return "Invalid token"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusTooManyRequests:
		return "Too many requests"
	case http.StatusServiceUnavailable:
		return "Service unavailable"
	case http.StatusBadRequest:
		return "Bad request"
	case http.StatusNotFound:
		return "Not found"
	default:
		return "Internal server error"
	}
}

// WriteError writes the status and generic message for err as plain text.
func WriteError(w http.ResponseWriter, err error) {
	http.Error(w, MessageFor(err), StatusFor(err))
}
