// Package errors provides unified error handling across the prompt composer.
//
// SYSTEM ARCHITECTURE ROLE:
// Every interface (CLI, HTTP API, TUI) reports failures through AppError so the same
// condition carries the same code, category and severity wherever it surfaces.
//
// KEY RESPONSIBILITIES:
// - Define error codes for composer conditions (refused deletes, confirmation, not found)
// - Provide structured error types (AppError) with severity levels and context
// - Let callers match conditions with errors.Is against the exported sentinels
//
// INTEGRATION POINTS:
// - internal/store: operations return the sentinels below (ErrLastTemplate, ErrConfirmationRequired, ...)
// - internal/commands: CommandExecutor converts errors to ErrorInfo
// - internal/api: HTTPErrorHandler maps codes to status codes
// - internal/cli: CLIErrorHandler formats errors for the terminal
// - internal/validation: validation failures become VALIDATION_ERROR AppErrors
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"

	// Service errors
	ErrCodeInternalError  ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// Resource errors
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Guarded destructive actions
	ErrCodeLastTemplate         ErrorCode = "LAST_TEMPLATE"
	ErrCodeConfirmationRequired ErrorCode = "CONFIRMATION_REQUIRED"

	// Storage errors
	ErrCodeStorageFailure ErrorCode = "STORAGE_FAILURE"

	// Network errors
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"

	// Authentication errors
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Command errors
	ErrCodeCommandNotFound ErrorCode = "COMMAND_NOT_FOUND"
	ErrCodeCommandFailed   ErrorCode = "COMMAND_FAILED"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityInfo     ErrorSeverity = "info"
	SeverityWarning  ErrorSeverity = "warning"
	SeverityError    ErrorSeverity = "error"
	SeverityCritical ErrorSeverity = "critical"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryService        ErrorCategory = "service"
	CategoryStorage        ErrorCategory = "storage"
	CategoryNetwork        ErrorCategory = "network"
	CategoryAuthentication ErrorCategory = "authentication"
	CategoryCommand        ErrorCategory = "command"
	CategorySystem         ErrorCategory = "system"
)

// Sentinels for errors.Is. Matching compares codes only.
var (
	ErrNotFound             = &AppError{Code: ErrCodeNotFound}
	ErrLastTemplate         = &AppError{Code: ErrCodeLastTemplate}
	ErrConfirmationRequired = &AppError{Code: ErrCodeConfirmationRequired}
	ErrUnauthorized         = &AppError{Code: ErrCodeUnauthorized}
	ErrValidation           = &AppError{Code: ErrCodeValidation}
)

// AppError represents a standardized application error
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Severity  ErrorSeverity          `json:"severity"`
	Category  ErrorCategory          `json:"category"`
	Cause     error                  `json:"-"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// IsRetryable returns whether the error is retryable
func (e *AppError) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	category, severity := categorizeError(code)
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  severity,
		Category:  category,
		Timestamp: time.Now(),
		Retryable: isRetryable(code),
	}
}

// Wrap wraps an existing error with application error context
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = err
	return appErr
}

// categorizeError determines the category and severity based on error code
func categorizeError(code ErrorCode) (ErrorCategory, ErrorSeverity) {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField:
		return CategoryValidation, SeverityWarning

	case ErrCodeInternalError:
		return CategoryService, SeverityCritical
	case ErrCodeNotImplemented:
		return CategoryService, SeverityInfo

	case ErrCodeNotFound:
		return CategoryService, SeverityInfo
	case ErrCodeAlreadyExists, ErrCodeLastTemplate, ErrCodeConfirmationRequired:
		return CategoryService, SeverityWarning

	case ErrCodeStorageFailure:
		return CategoryStorage, SeverityError

	case ErrCodeNetworkFailure:
		return CategoryNetwork, SeverityError

	case ErrCodeUnauthorized, ErrCodeInvalidToken:
		return CategoryAuthentication, SeverityWarning

	case ErrCodeCommandNotFound:
		return CategoryCommand, SeverityInfo
	case ErrCodeCommandFailed:
		return CategoryCommand, SeverityError

	default:
		return CategorySystem, SeverityError
	}
}

// isRetryable determines if an error is retryable based on its code
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeNetworkFailure, ErrCodeStorageFailure:
		return true
	default:
		return false
	}
}

// IsAppError checks if an error is or wraps an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetAppError extracts an AppError from an error, or converts it to one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, ErrCodeInternalError, "Internal error occurred")
}

// Common error constructors for frequently used errors
func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message)
}

func NotFoundError(resource, id string) *AppError {
	return NewAppError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).WithContext("id", id)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternalError, message)
}

func StorageError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeStorageFailure, fmt.Sprintf("Storage operation failed: %s", operation))
}

func NetworkError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeNetworkFailure, fmt.Sprintf("Network operation failed: %s", operation))
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message)
}

func CommandNotFoundError(command string) *AppError {
	return NewAppError(ErrCodeCommandNotFound, fmt.Sprintf("Command '%s' not found", command))
}
