package api

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-composer/internal/auth"
	"github.com/dpshade/prompt-composer/internal/errors"
	"github.com/dpshade/prompt-composer/internal/metrics"
)

// Locals keys
const (
	localRequestID = "requestid"
	localUserID    = "user_id"
)

// RequestLogger logs every request with a generated request id
func RequestLogger(log *logrus.Entry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := uuid.NewString()

		c.Locals(localRequestID, requestID)
		c.Set("X-Request-ID", requestID)

		err := c.Next()

		latency := time.Since(start)
		statusCode := c.Response().StatusCode()

		entry := log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"http_method": c.Method(),
			"uri":         c.OriginalURL(),
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.IP(),
			"user_agent":  string(c.Request().Header.UserAgent()),
		})
		if userID, ok := c.Locals(localUserID).(string); ok {
			entry = entry.WithField("user_id", userID)
		}

		if err != nil {
			entry.WithField("error", err.Error()).Error("Request processing failed")
		} else if statusCode >= 500 {
			entry.Error("Request completed with server error")
		} else if statusCode >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}

		return err
	}
}

// Metrics records request counts and latencies by route pattern
func Metrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start).Seconds()

		endpoint := c.Route().Path
		method := c.Method()
		statusCode := c.Response().StatusCode()
		status := fmt.Sprintf("%d", statusCode)

		metrics.HttpRequestsTotal.WithLabelValues(endpoint, status, method).Inc()
		metrics.HttpRequestDuration.WithLabelValues(endpoint, method).Observe(duration)
		if statusCode >= 400 && statusCode < 600 {
			metrics.HttpErrorsTotal.WithLabelValues(endpoint, status, method).Inc()
		}
		return err
	}
}

// Authenticate resolves the caller's user id from the Authorization header
func Authenticate(a auth.Authenticator, handler *errors.HTTPErrorHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, _ := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
		userID, err := a.Authenticate(c.UserContext(), token)
		if err != nil {
			return c.Status(handler.StatusCode(err)).JSON(handler.Body(err))
		}
		c.Locals(localUserID, userID)
		return c.Next()
	}
}

// UserID returns the authenticated user of the request
func UserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(localUserID).(string)
	return userID
}
