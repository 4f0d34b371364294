package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Standard error codes
const (
	CodeValidationError       = "VALIDATION_ERROR"
	CodeNotFound              = "RESOURCE_NOT_FOUND"
	CodeConflict              = "CONFLICT"
	CodeDuplicate             = "DUPLICATE"
	CodeInsufficientInventory = "INSUFFICIENT_INVENTORY"
	CodeDependencyFailed      = "DEPENDENCY_FAILED"
	CodeInternalError         = "INTERNAL_ERROR"
	CodeServiceUnavailable    = "SERVICE_UNAVAILABLE"
	CodeTimeout               = "TIMEOUT"
)

// AppError represents an application error with HTTP status and error code
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so callers can use errors.Is against the sentinels below.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap wraps an existing error
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates a new AppError
func NewAppError(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Kind sentinels for errors.Is comparisons.
var (
	KindValidation            = &AppError{Code: CodeValidationError}
	KindNotFound              = &AppError{Code: CodeNotFound}
	KindDuplicate             = &AppError{Code: CodeDuplicate}
	KindInsufficientInventory = &AppError{Code: CodeInsufficientInventory}
	KindDependencyFailed      = &AppError{Code: CodeDependencyFailed}
	KindInternal              = &AppError{Code: CodeInternalError}
)

// Validation errors

// ErrValidation creates a validation error
func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

// ErrValidationWithFields creates a validation error with field details
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	return ErrValidation(message).WithDetails(fields)
}

// Resource errors

// ErrNotFound creates a not found error
func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ErrNotFoundWithID creates a not found error with ID
func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrConflict creates a conflict error
func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

// ErrDuplicate reports a collision on a unique key such as a package barcode.
func ErrDuplicate(field, value string) *AppError {
	return NewAppError(CodeDuplicate, fmt.Sprintf("duplicate %s %q", field, value), http.StatusConflict).
		WithDetail(field, value)
}

// Inventory errors

// ErrInsufficientInventory reports the exact shortfall for one inventory source.
func ErrInsufficientInventory(bucketID string, requested, available int) *AppError {
	shortfall := requested - available
	return NewAppError(
		CodeInsufficientInventory,
		fmt.Sprintf("bucket %s has %d available, %d requested (short by %d)", bucketID, available, requested, shortfall),
		http.StatusUnprocessableEntity,
	).WithDetails(map[string]string{
		"bucketId":  bucketID,
		"requested": strconv.Itoa(requested),
		"available": strconv.Itoa(available),
		"shortfall": strconv.Itoa(shortfall),
	})
}

// Shortfall returns the shortfall carried by an INSUFFICIENT_INVENTORY error.
func Shortfall(err error) (int, bool) {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code != CodeInsufficientInventory {
		return 0, false
	}
	n, convErr := strconv.Atoi(appErr.Details["shortfall"])
	if convErr != nil {
		return 0, false
	}
	return n, true
}

// Dependency errors

// ErrDependencyFailed reports a failed or malformed remote call.
func ErrDependencyFailed(service, operation string) *AppError {
	return NewAppError(
		CodeDependencyFailed,
		fmt.Sprintf("%s %s failed", service, operation),
		http.StatusBadGateway,
	).WithDetails(map[string]string{
		"service":   service,
		"operation": operation,
	})
}

// Internal errors

// ErrInternal creates an internal error
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

// Service errors

// ErrServiceUnavailable creates a service unavailable error
func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// ErrTimeout creates a timeout error
func ErrTimeout(operation string) *AppError {
	return NewAppError(CodeTimeout, fmt.Sprintf("%s timed out", operation), http.StatusGatewayTimeout)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// MapDomainError maps common domain error messages to AppErrors
func MapDomainError(err error) *AppError {
	if err == nil {
		return nil
	}

	if appErr, ok := AsAppError(err); ok {
		return appErr
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "not found"):
		return ErrNotFound("resource").Wrap(err)
	case strings.Contains(msg, "already exists"), strings.Contains(msg, "duplicate"):
		return NewAppError(CodeDuplicate, err.Error(), http.StatusConflict).Wrap(err)
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "required"):
		return ErrValidation(err.Error()).Wrap(err)
	case strings.Contains(msg, "timeout"):
		return ErrTimeout("operation").Wrap(err)
	default:
		return ErrInternal("").Wrap(err)
	}
}
