package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestSentinelMatchingByCode(t *testing.T) {
	err := NewAppError(ErrCodeLastTemplate, "cannot delete the only template")
	if !stderrors.Is(err, ErrLastTemplate) {
		t.Error("Expected error to match ErrLastTemplate")
	}
	if stderrors.Is(err, ErrNotFound) {
		t.Error("Expected error not to match ErrNotFound")
	}

	wrapped := fmt.Errorf("delete failed: %w", err)
	if !stderrors.Is(wrapped, ErrLastTemplate) {
		t.Error("Expected wrapped error to match through fmt.Errorf")
	}
}

func TestGetAppErrorConvertsPlainErrors(t *testing.T) {
	appErr := GetAppError(stderrors.New("boom"))
	if appErr.Code != ErrCodeInternalError {
		t.Errorf("Expected INTERNAL_ERROR, got %s", appErr.Code)
	}
	if appErr.Severity != SeverityCritical {
		t.Errorf("Expected critical severity, got %s", appErr.Severity)
	}
}

func TestCategorization(t *testing.T) {
	err := StorageError("upsert placeholder", stderrors.New("disk"))
	if err.Category != CategoryStorage || !err.IsRetryable() {
		t.Errorf("Unexpected categorization %+v", err)
	}
	if !stderrors.Is(err, &AppError{Code: ErrCodeStorageFailure}) {
		t.Error("Expected code match")
	}
	if err.Unwrap() == nil {
		t.Error("Expected cause to be preserved")
	}
}

func TestHTTPStatusCodes(t *testing.T) {
	h := NewHTTPErrorHandler(true, nil)
	tests := map[ErrorCode]int{
		ErrCodeValidation:           http.StatusBadRequest,
		ErrCodeNotFound:             http.StatusNotFound,
		ErrCodeConfirmationRequired: http.StatusConflict,
		ErrCodeLastTemplate:         http.StatusUnprocessableEntity,
		ErrCodeUnauthorized:         http.StatusUnauthorized,
		ErrCodeInternalError:        http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := h.StatusCode(NewAppError(code, "x")); got != want {
			t.Errorf("%s: expected %d, got %d", code, want, got)
		}
	}
}

func TestHTTPBodyIncludesContext(t *testing.T) {
	h := NewHTTPErrorHandler(false, nil)
	err := NewAppError(ErrCodeConfirmationRequired, "confirm").WithContext("affected_templates", 2).WithDetails("hidden")
	body := h.Body(err)
	inner := body["error"].(map[string]interface{})
	if inner["context"] == nil {
		t.Error("Expected context in body")
	}
	if _, ok := inner["details"]; ok {
		t.Error("Expected details to be omitted when IncludeDetails is false")
	}
}

func TestCLIFormat(t *testing.T) {
	h := NewCLIErrorHandler(false, nil)
	msg := h.FormatError(NewAppError(ErrCodeNotFound, "Template not found"))
	if !strings.Contains(msg, "INFO") || !strings.Contains(msg, "Template not found") {
		t.Errorf("Unexpected CLI format %q", msg)
	}
}
