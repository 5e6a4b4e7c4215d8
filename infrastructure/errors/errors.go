// Package errors provides unified error handling for the discovery engine.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure independent of its message text.
type ErrorCode string

const (
	// Authentication — AUTH_1xxx
	CodeUnauthorized  ErrorCode = "AUTH_1001"
	CodeInvalidAPIKey ErrorCode = "AUTH_1002"

	// Authorization — AUTHZ_2xxx
	CodeForbidden      ErrorCode = "AUTHZ_2001"
	CodeTenantMismatch ErrorCode = "AUTHZ_2002"

	// Validation — VAL_3xxx
	CodeInvalidInput     ErrorCode = "VAL_3001"
	CodeMissingParameter ErrorCode = "VAL_3002"
	CodeInvalidFormat    ErrorCode = "VAL_3003"
	CodeOutOfRange       ErrorCode = "VAL_3004"

	// Resource — RES_4xxx
	CodeNotFound      ErrorCode = "RES_4001"
	CodeAlreadyExists ErrorCode = "RES_4002"
	CodeConflict      ErrorCode = "RES_4003"

	// Service — SVC_5xxx
	CodeInternal              ErrorCode = "SVC_5001"
	CodeDependencyUnavailable ErrorCode = "SVC_5002"
	CodeTimeout               ErrorCode = "SVC_5003"

	// Limits — LIM_6xxx
	CodeRateLimited   ErrorCode = "LIM_6001"
	CodeLimitExceeded ErrorCode = "LIM_6002"
	CodeBusy          ErrorCode = "LIM_6003"
)

// ServiceError is the canonical error type returned by every layer of the
// engine. It carries an HTTP status so handlers never need to re-derive one
// from the error message.
type ServiceError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured context to the error and returns it for
// chaining.
func (e *ServiceError) WithDetails(details map[string]interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

func newError(code ErrorCode, status int, format string, args ...interface{}) *ServiceError {
	return &ServiceError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: status,
	}
}

func Unauthorized(format string, args ...interface{}) *ServiceError {
	return newError(CodeUnauthorized, http.StatusUnauthorized, format, args...)
}

func InvalidAPIKey() *ServiceError {
	return newError(CodeInvalidAPIKey, http.StatusUnauthorized, "invalid or revoked API key")
}

func Forbidden(format string, args ...interface{}) *ServiceError {
	return newError(CodeForbidden, http.StatusForbidden, format, args...)
}

func TenantMismatch() *ServiceError {
	return newError(CodeTenantMismatch, http.StatusForbidden, "resource does not belong to the authenticated tenant")
}

func InvalidInput(format string, args ...interface{}) *ServiceError {
	return newError(CodeInvalidInput, http.StatusBadRequest, format, args...)
}

func MissingParameter(name string) *ServiceError {
	return newError(CodeMissingParameter, http.StatusBadRequest, "missing required parameter: %s", name)
}

func InvalidFormat(field string, reason string) *ServiceError {
	return newError(CodeInvalidFormat, http.StatusBadRequest, "invalid format for %s: %s", field, reason)
}

func OutOfRange(field string, reason string) *ServiceError {
	return newError(CodeOutOfRange, http.StatusBadRequest, "%s out of range: %s", field, reason)
}

func NotFound(resource string, id string) *ServiceError {
	return newError(CodeNotFound, http.StatusNotFound, "%s not found: %s", resource, id)
}

func AlreadyExists(resource string, id string) *ServiceError {
	return newError(CodeAlreadyExists, http.StatusConflict, "%s already exists: %s", resource, id)
}

func Conflict(format string, args ...interface{}) *ServiceError {
	return newError(CodeConflict, http.StatusConflict, format, args...)
}

func Internal(err error) *ServiceError {
	return &ServiceError{
		Code:       CodeInternal,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func DependencyUnavailable(name string, err error) *ServiceError {
	return &ServiceError{
		Code:       CodeDependencyUnavailable,
		Message:    fmt.Sprintf("dependency unavailable: %s", name),
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func Timeout(operation string) *ServiceError {
	return newError(CodeTimeout, http.StatusGatewayTimeout, "operation timed out: %s", operation)
}

// RateLimited carries the number of seconds the caller should wait before
// retrying, mirroring the Retry-After header the HTTP layer sets.
func RateLimited(retryAfterSeconds int) *ServiceError {
	return newError(CodeRateLimited, http.StatusTooManyRequests, "rate limit exceeded").
		WithDetails(map[string]interface{}{"retryAfterSeconds": retryAfterSeconds})
}

func LimitExceeded(limit string, max int) *ServiceError {
	return newError(CodeLimitExceeded, http.StatusBadRequest, "%s limit exceeded: max %d", limit, max).
		WithDetails(map[string]interface{}{"limit": limit, "max": max})
}

// Busy indicates the tenant's event queue is above its backpressure
// threshold and the caller should retry later.
func Busy(retryAfterSeconds int) *ServiceError {
	return newError(CodeBusy, http.StatusTooManyRequests, "tenant event queue is busy").
		WithDetails(map[string]interface{}{"retryAfterSeconds": retryAfterSeconds})
}

// IsServiceError reports whether err (or one it wraps) is a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// GetServiceError extracts the *ServiceError from err, if any.
func GetServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// GetHTTPStatus returns the HTTP status for err, defaulting to 500 when err
// is not a *ServiceError.
func GetHTTPStatus(err error) int {
	if se, ok := GetServiceError(err); ok {
		return se.HTTPStatus
	}
	return http.StatusInternalServerError
}
