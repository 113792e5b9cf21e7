package api

import (
	"errors"
	"fmt"
)

// AuthError means the server rejected a credential exchange (login, refresh,
// OAuth). It carries a user-facing message and never mutates local state.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (status %d)", e.StatusCode)
	}
	return e.Message
}

// ValidationError means registration input was rejected. Field messages are
// keyed by input name so the UI can surface them inline.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return "invalid input"
	}
	return e.Message
}

// IsAuthError reports whether err (or anything it wraps) is an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsUnauthorized reports whether err is an AuthError with status 401.
func IsUnauthorized(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.StatusCode == 401
}
