package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dpshade/prompt-composer/internal/errors"
)

// BindJSON parses the request body into out and validates it. An empty body is
// treated as an empty object so optional-only payloads can be omitted.
func BindJSON(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.BodyParser(out); err != nil {
			return errors.NewAppError(errors.ErrCodeInvalidInput, "Cannot parse request body").
				WithDetails(err.Error())
		}
	}
	return Check(out)
}

// QueryBool reads a boolean query flag; "1", "true" and "yes" are true
func QueryBool(c *fiber.Ctx, name string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(name))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// RequireParam returns a path parameter or a MISSING_FIELD error when it is empty
func RequireParam(c *fiber.Ctx, name string) (string, error) {
	v := strings.TrimSpace(c.Params(name))
	if v == "" {
		return "", errors.NewAppError(errors.ErrCodeMissingField, "Missing path parameter").
			WithContext("param", name)
	}
	return v, nil
}
