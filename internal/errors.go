package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidSnowflake ErrorCode = "INVALID_SNOWFLAKE"

	// gate outcomes
	ErrCodeUnauthenticated         ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidAssertion        ErrorCode = "INVALID_ASSERTION"
	ErrCodeAssertionExpired        ErrorCode = "ASSERTION_EXPIRED"
	ErrCodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeGuildMismatch           ErrorCode = "GUILD_MISMATCH"

	ErrCodeGuildNotFound ErrorCode = "GUILD_NOT_FOUND"
	ErrCodeUserNotFound  ErrorCode = "USER_NOT_FOUND"
	ErrCodeInvalidState  ErrorCode = "INVALID_OAUTH_STATE"

	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
	ErrCodeRateLimited     ErrorCode = "RATE_LIMITED"
)

// AppError is the error envelope rendered to API clients. Cause is logged but
// never serialized.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func newAppError(t ErrorType, code ErrorCode, status int, message string) *AppError {
	return &AppError{Type: t, Code: code, Message: message, StatusCode: status}
}

func (e *AppError) Error() string {
	if v, ok := e.Details.(ValidationErrors); ok && len(v.Errors) > 0 {
		return v.Errors[0].Message
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of e carrying details, so shared sentinels stay untouched.
func (e *AppError) WithDetails(details interface{}) *AppError {
	c := *e
	c.Details = details
	return &c
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeValidation, code, http.StatusBadRequest, message)
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeNotFound, code, http.StatusNotFound, message)
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeUnauthorized, code, http.StatusUnauthorized, message)
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return newAppError(ErrorTypeForbidden, code, http.StatusForbidden, message)
}

func NewInternalError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeInternal, ErrCodeInternal, http.StatusInternalServerError, message)
	e.Cause = cause
	return e
}

// NewExternalError reports a failed call to Discord or the backend as 502.
func NewExternalError(message string, cause error) *AppError {
	e := newAppError(ErrorTypeExternal, ErrCodeUpstreamFailure, http.StatusBadGateway, message)
	e.Cause = cause
	return e
}

var (
	ErrUnauthenticated         = NewUnauthorizedError("Authentication required", ErrCodeUnauthenticated)
	ErrInvalidAssertion        = NewUnauthorizedError("Invalid identity assertion", ErrCodeInvalidAssertion)
	ErrAssertionExpired        = NewUnauthorizedError("Identity assertion has expired", ErrCodeAssertionExpired)
	ErrInsufficientPermissions = NewForbiddenError("Insufficient permissions for this guild", ErrCodeInsufficientPermissions)
	ErrGuildMismatch           = NewForbiddenError("Assertion was issued for another guild", ErrCodeGuildMismatch)
	ErrGuildNotFound           = NewNotFoundError("Guild not found", ErrCodeGuildNotFound)
	ErrUserNotFound            = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrInvalidOAuthState       = NewValidationError("Invalid or expired OAuth state", ErrCodeInvalidState)
	ErrRateLimited             = newAppError(ErrorTypeRateLimited, ErrCodeRateLimited, http.StatusTooManyRequests, "Too many requests")
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
