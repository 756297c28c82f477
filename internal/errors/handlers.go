package errors

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// ErrorHandler provides interface-specific error handling
type ErrorHandler interface {
	HandleError(err error) error
	FormatError(err error) string
}

// CLIErrorHandler handles errors for CLI interface
type CLIErrorHandler struct {
	Verbose bool
	Log     *logrus.Entry
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler(verbose bool, log *logrus.Entry) *CLIErrorHandler {
	return &CLIErrorHandler{
		Verbose: verbose,
		Log:     log,
	}
}

// HandleError handles errors for CLI interface
func (h *CLIErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Verbose && h.Log != nil {
		entry := h.Log.WithFields(logrus.Fields{
			"code":     appErr.Code,
			"severity": appErr.Severity,
		})
		if appErr.Cause != nil {
			entry = entry.WithError(appErr.Cause)
		}
		entry.Warn(appErr.Message)
	}

	return fmt.Errorf("%s", h.FormatError(appErr))
}

// FormatError formats an error for CLI display
func (h *CLIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.Verbose && appErr.Details != "" {
		message = fmt.Sprintf("%s (%s)", message, appErr.Details)
	}

	switch appErr.Severity {
	case SeverityCritical:
		return fmt.Sprintf("❌ CRITICAL: %s", message)
	case SeverityError:
		return fmt.Sprintf("❌ ERROR: %s", message)
	case SeverityWarning:
		return fmt.Sprintf("⚠️  WARNING: %s", message)
	case SeverityInfo:
		return fmt.Sprintf("ℹ️  INFO: %s", message)
	default:
		return fmt.Sprintf("❌ %s", message)
	}
}

// HTTPErrorHandler maps errors to HTTP status codes and JSON bodies
type HTTPErrorHandler struct {
	IncludeDetails bool
	Log            *logrus.Entry
}

// NewHTTPErrorHandler creates a new HTTP error handler
func NewHTTPErrorHandler(includeDetails bool, log *logrus.Entry) *HTTPErrorHandler {
	return &HTTPErrorHandler{
		IncludeDetails: includeDetails,
		Log:            log,
	}
}

// HandleError logs an error on its way out of the HTTP layer
func (h *HTTPErrorHandler) HandleError(err error) error {
	appErr := GetAppError(err)

	if h.Log != nil {
		entry := h.Log.WithFields(logrus.Fields{
			"code":     appErr.Code,
			"severity": appErr.Severity,
		})
		if appErr.Cause != nil {
			entry = entry.WithError(appErr.Cause)
		}
		if appErr.Severity == SeverityCritical || appErr.Severity == SeverityError {
			entry.Error(appErr.Message)
		} else {
			entry.Info(appErr.Message)
		}
	}

	return appErr
}

// FormatError returns the message sent to HTTP clients
func (h *HTTPErrorHandler) FormatError(err error) string {
	return GetAppError(err).Message
}

// Body builds the JSON error body of a response
func (h *HTTPErrorHandler) Body(err error) map[string]interface{} {
	appErr := GetAppError(err)

	body := map[string]interface{}{
		"code":      appErr.Code,
		"message":   appErr.Message,
		"timestamp": appErr.Timestamp,
	}
	if h.IncludeDetails && appErr.Details != "" {
		body["details"] = appErr.Details
	}
	if appErr.Context != nil {
		body["context"] = appErr.Context
	}

	return map[string]interface{}{
		"status": "error",
		"error":  body,
	}
}

// StatusCode maps error codes to HTTP status codes
func (h *HTTPErrorHandler) StatusCode(err error) int {
	switch GetAppError(err).Code {
	case ErrCodeValidation, ErrCodeInvalidInput, ErrCodeMissingField:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeCommandNotFound:
		return http.StatusNotFound
	case ErrCodeAlreadyExists, ErrCodeConfirmationRequired:
		return http.StatusConflict
	case ErrCodeLastTemplate:
		return http.StatusUnprocessableEntity
	case ErrCodeUnauthorized, ErrCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrCodeNetworkFailure:
		return http.StatusBadGateway
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// TUIErrorHandler handles errors for TUI interface
type TUIErrorHandler struct {
	ShowDetails bool
}

// NewTUIErrorHandler creates a new TUI error handler
func NewTUIErrorHandler(showDetails bool) *TUIErrorHandler {
	return &TUIErrorHandler{
		ShowDetails: showDetails,
	}
}

// HandleError handles errors for TUI interface
func (h *TUIErrorHandler) HandleError(err error) error {
	return GetAppError(err)
}

// FormatError formats an error for TUI display
func (h *TUIErrorHandler) FormatError(err error) string {
	appErr := GetAppError(err)

	message := appErr.Message
	if h.ShowDetails && appErr.Details != "" {
		message = fmt.Sprintf("%s\nDetails: %s", message, appErr.Details)
	}

	return message
}

// GetErrorStyle returns an icon and color for TUI display based on error severity
func (h *TUIErrorHandler) GetErrorStyle(err error) (string, string) {
	appErr := GetAppError(err)

	switch appErr.Severity {
	case SeverityCritical:
		return "🔥", "#ff0000"
	case SeverityError:
		return "❌", "#ff6b6b"
	case SeverityWarning:
		return "⚠️", "#feca57"
	case SeverityInfo:
		return "ℹ️", "#48cae4"
	default:
		return "❌", "#ff6b6b"
	}
}
