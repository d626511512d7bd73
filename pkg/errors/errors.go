package errors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// JWT and tokens
	ErrInvalidSigningMethod = fmt.Errorf("invalid token signing method")
	ErrInvalidToken         = fmt.Errorf("invalid token")
	ErrTokenExpired         = fmt.Errorf("token expired")
	ErrTokenNotYetValid     = fmt.Errorf("token not yet valid")
	ErrTokenIsNotAccess     = fmt.Errorf("token is not an access token")

	// Authorization
	ErrEmptyAuthHeader   = fmt.Errorf("authorization header is missing")
	ErrInvalidAuthHeader = fmt.Errorf("invalid authorization header format")
	ErrUnauthorized      = fmt.Errorf("unauthorized")
	ErrForbidden         = fmt.Errorf("access denied")

	// Context
	ErrActorNotFoundInContext = fmt.Errorf("actor not found in request context")

	// Workflow
	ErrInvalidState  = fmt.Errorf("operation is not allowed in the current status")
	ErrStaleState    = fmt.Errorf("status was changed concurrently, re-fetch and retry")
	ErrDataIntegrity = fmt.Errorf("data integrity violation")

	// Common
	ErrNotFound   = fmt.Errorf("record not found")
	ErrConflict   = fmt.Errorf("record already exists")
	ErrBadRequest = fmt.Errorf("bad request")
)

type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string { return e.Message }

func NewInvalidInputError(format string, args ...interface{}) error {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}

// ValidationError is returned when compliance checks fail. Report holds the
// full per-target report so callers can show every issue at once.
type ValidationError struct {
	Issues []string
	Report interface{}
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "compliance validation failed"
	}
	return "compliance validation failed: " + strings.Join(e.Issues, "; ")
}

func NewValidationError(issues []string, report interface{}) error {
	return &ValidationError{Issues: issues, Report: report}
}

// DataIntegrity wraps ErrDataIntegrity with a description of the bad data.
func DataIntegrity(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataIntegrity, fmt.Sprintf(format, args...))
}

type HttpError struct {
	Code    int
	Message string
	Err     error
	Details interface{}
}

func (e *HttpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *HttpError) Unwrap() error { return e.Err }

func NewHttpError(code int, message string, err error, details interface{}) *HttpError {
	return &HttpError{Code: code, Message: message, Err: err, Details: details}
}

func IsValidation(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
