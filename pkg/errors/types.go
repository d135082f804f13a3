package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a structured error code
type ErrorCode string

const (
	// Request errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// Capture errors
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeDeviceBusy       ErrorCode = "DEVICE_BUSY"
	ErrCodeDeviceFailure    ErrorCode = "DEVICE_FAILURE"
	ErrCodeConsentRequired  ErrorCode = "CONSENT_REQUIRED"

	// Pipeline errors
	ErrCodeFileTooLarge       ErrorCode = "FILE_TOO_LARGE"
	ErrCodeTransferError      ErrorCode = "TRANSFER_ERROR"
	ErrCodeServiceError       ErrorCode = "SERVICE_ERROR"
	ErrCodeEmptyResult        ErrorCode = "EMPTY_RESULT"
	ErrCodeConflictingAttempt ErrorCode = "CONFLICTING_ATTEMPT"
	ErrCodeAlreadyFinalized   ErrorCode = "ALREADY_FINALIZED"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"

	// Internal errors
	ErrCodeInternal ErrorCode = "INTERNAL"

	// Authentication/Authorization errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
)

// AppError represents a structured application error
type AppError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
	Cause    error                  `json:"-"`
	HTTPCode int                    `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying cause
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// GetHTTPCode returns the appropriate HTTP status code
func (e *AppError) GetHTTPCode() int {
	if e.HTTPCode != 0 {
		return e.HTTPCode
	}
	return getDefaultHTTPCode(e.Code)
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		HTTPCode: getDefaultHTTPCode(code),
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return New(code, message).WithCause(cause)
}

// getDefaultHTTPCode returns the default HTTP status code for an error code
func getDefaultHTTPCode(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeDeviceBusy, ErrCodeConflictingAttempt,
		ErrCodeAlreadyFinalized, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeInvalidInput, ErrCodeConsentRequired:
		return http.StatusBadRequest
	case ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeEmptyResult:
		return http.StatusUnprocessableEntity
	case ErrCodeTransferError, ErrCodeServiceError:
		return http.StatusBadGateway
	case ErrCodeDeviceFailure:
		return http.StatusServiceUnavailable
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodePermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Is checks if an error is of a specific type
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// GetHTTPCode extracts the HTTP status code from an error
func GetHTTPCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.GetHTTPCode()
	}
	return http.StatusInternalServerError
}
