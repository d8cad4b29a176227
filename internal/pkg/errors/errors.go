package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodePaymentRequired    = "PAYMENT_REQUIRED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"

	// Entitlement resolution codes
	ErrCodeUserNotFound          = "USER_NOT_FOUND"
	ErrCodeAccountNotFound       = "ACCOUNT_NOT_FOUND"
	ErrCodeNoAccountLinked       = "NO_ACCOUNT_LINKED"
	ErrCodeUpstreamLookupFailure = "UPSTREAM_LOOKUP_FAILURE"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// PaymentRequired creates a payment required error. The entitlement guard
// uses it for denied decisions on API-style requests.
func PaymentRequired(message string) *AppError {
	return New(ErrCodePaymentRequired, message, http.StatusPaymentRequired)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// Entitlement resolution constructors

// UserNotFound means the session names a user the store does not have
func UserNotFound(userID int64) *AppError {
	return New(ErrCodeUserNotFound, fmt.Sprintf("User %d not found", userID), http.StatusNotFound)
}

// AccountNotFound means a user's account link points at a missing account
func AccountNotFound(accountID int64) *AppError {
	return New(ErrCodeAccountNotFound, fmt.Sprintf("Account %d not found", accountID), http.StatusNotFound)
}

// NoAccountLinked means the user resolved but no account chain exists
func NoAccountLinked(userID int64) *AppError {
	return New(ErrCodeNoAccountLinked, fmt.Sprintf("User %d has no linked account", userID), http.StatusNotFound)
}

// UpstreamLookupFailure wraps an infrastructure error raised while resolving
// identity or account state. The fail-mode policy decides what it means.
func UpstreamLookupFailure(err error) *AppError {
	return Wrap(err, ErrCodeUpstreamLookupFailure, "Account lookup failed", http.StatusBadGateway)
}

// HasCode reports whether err is an AppError with the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
