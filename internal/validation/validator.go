// Package validation provides centralized input validation.
//
// SYSTEM ARCHITECTURE ROLE:
// This module is the validation layer between the outer surfaces (CLI, HTTP API, TUI)
// and the composition store. Command parameters and request bodies are plain structs
// carrying `validate` tags; this package runs them through go-playground/validator and
// turns failures into VALIDATION_ERROR AppErrors.
//
// KEY RESPONSIBILITIES:
// - Own the shared validator instance and its custom tags
// - Report every failing field with the tag it failed on
// - Convert failures to the AppError format used by every surface
//
// INTEGRATION POINTS:
// - internal/commands/types.go: CommandExecutor validates parameters before Execute
// - internal/validation/middleware.go: BindJSON parses and validates fiber request bodies
// - internal/errors/errors.go: ValidationResult.ToAppError() converts failures to AppError format
//
// CUSTOM TAGS:
// - notblank: the string contains something other than whitespace
// - placeholder: a placeholder key, non-empty and free of braces
// - category: a non-blank category name without line breaks
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/dpshade/prompt-composer/internal/errors"
)

// ValidationResult represents the result of validation
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Tag     string      `json:"tag"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

var (
	instance *validator.Validate
	once     sync.Once
)

// Validate returns the shared validator with the custom tags registered
func Validate() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		// report json names so messages match what clients send
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})

		v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		v.RegisterValidation("placeholder", func(fl validator.FieldLevel) bool {
			key := fl.Field().String()
			return key != "" && !strings.ContainsAny(key, "{}")
		})
		v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			c := fl.Field().String()
			return strings.TrimSpace(c) != "" && !strings.ContainsAny(c, "\r\n")
		})

		instance = v
	})
	return instance
}

// Struct validates s against its `validate` tags
func Struct(s interface{}) *ValidationResult {
	err := Validate().Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true}
	}

	result := &ValidationResult{Valid: false}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		result.Errors = append(result.Errors, ValidationError{Field: "input", Tag: "invalid", Message: err.Error()})
		return result
	}
	for _, fe := range verrs {
		message := fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			message = fmt.Sprintf("%s (value: %s)", message, fe.Param())
		}
		result.Errors = append(result.Errors, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: message,
			Value:   fe.Value(),
		})
	}
	return result
}

// Check validates s and returns an AppError on failure
func Check(s interface{}) error {
	if result := Struct(s); !result.Valid {
		return result.ToAppError()
	}
	return nil
}

// Messages returns one message per failing field
func (result *ValidationResult) Messages() []string {
	messages := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		messages = append(messages, e.Message)
	}
	return messages
}

// ToAppError converts validation result to AppError
func (result *ValidationResult) ToAppError() *errors.AppError {
	if result.Valid {
		return nil
	}

	if len(result.Errors) == 0 {
		return errors.ValidationError("Validation failed")
	}

	// Use the first error as the primary error
	appErr := errors.ValidationError(result.Errors[0].Message)
	if len(result.Errors) > 1 {
		appErr.WithDetails(strings.Join(result.Messages(), ", "))
	}
	appErr.WithContext("validation_errors", result.Errors)
	return appErr
}

// SanitizeString trims the input and drops control characters other than
// newlines and tabs
func SanitizeString(input string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if r < 32 && r != '\n' && r != '\t' {
			continue
		}
		if r == 127 {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
