package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a record does not exist or is not visible
// to the acting user.
var ErrNotFound = errors.New("not found")

// ErrDispatchFailed signals that an external notification (email) could not
// be delivered and any state created for it was rolled back.
var ErrDispatchFailed = errors.New("notification dispatch failed")

// ValidationError reports bad or missing input. Surfaced as HTTP 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthErrorKind distinguishes authentication failures that map to different
// HTTP statuses.
type AuthErrorKind int

const (
	AuthUnauthenticated AuthErrorKind = iota // 401: missing/invalid/expired token
	AuthInvalidCredentials                   // 401: wrong email or password
	AuthInvalidTwoFactorCode                 // 401: bad TOTP code
	AuthInvalidResetToken                    // 400: bad or expired reset token
	AuthUserGone                             // 401: token references a deleted user
	AuthForbidden                            // 403: role not allowed
)

type AuthError struct {
	Kind    AuthErrorKind
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

func NewAuthError(kind AuthErrorKind, message string) *AuthError {
	return &AuthError{Kind: kind, Message: message}
}

// Canonical messages. Invalid credentials never distinguishes an unknown
// email from a wrong password.
var (
	ErrInvalidCredentials = NewAuthError(AuthInvalidCredentials, "Incorrect email or password.")
	ErrNotLoggedIn        = NewAuthError(AuthUnauthenticated, "You are not logged in. Please log in to get access.")
	ErrInvalidToken       = NewAuthError(AuthUnauthenticated, "Invalid token. Please log in again.")
	ErrUserGone           = NewAuthError(AuthUserGone, "The user belonging to this token no longer exists.")
	ErrForbidden          = NewAuthError(AuthForbidden, "You do not have permission to perform this action.")
	ErrInvalidTwoFactor   = NewAuthError(AuthInvalidTwoFactorCode, "Invalid 2FA token.")
	ErrInvalidResetToken  = NewAuthError(AuthInvalidResetToken, "Token is invalid or has expired")
)
