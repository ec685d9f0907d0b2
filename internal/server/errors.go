package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/webhookharness/internal/secret"
	"github.com/smallbiznis/webhookharness/internal/webhookevent/domain"
)

// errorResponse keeps the flat {"error": "..."} body webhook senders and
// the dashboard already parse; type carries the machine-readable code.
type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	var maxBytesErr *http.MaxBytesError

	switch {
	case err == nil:
		return http.StatusInternalServerError, errorResponse{
			Type:  "internal_error",
			Error: "Internal server error",
		}
	case errors.Is(err, domain.ErrInvalidPayload):
		return http.StatusBadRequest, errorResponse{
			Type:  "invalid_payload",
			Error: "Invalid JSON payload",
		}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{
			Type:  "not_found",
			Error: "Event not found",
		}
	case errors.Is(err, secret.ErrSecretRequired):
		return http.StatusBadRequest, errorResponse{
			Type:  "secret_required",
			Error: "Secret is required and must be a string",
		}
	case errors.Is(err, secret.ErrSecretTooShort):
		return http.StatusBadRequest, errorResponse{
			Type:  "secret_too_short",
			Error: "Secret must be at least 16 characters",
		}
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{
			Type:  "invalid_request",
			Error: "Invalid request",
		}
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, errorResponse{
			Type:  "payload_too_large",
			Error: "Payload too large",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{
			Type:  "rate_limited",
			Error: "Too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorResponse{
			Type:  "service_unavailable",
			Error: "Service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorResponse{
			Type:  "internal_error",
			Error: "Internal server error",
		}
	}
}

func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "server_error", payload.Type
	case status == http.StatusTooManyRequests:
		return "rate_limited", payload.Type
	default:
		return "validation_error", payload.Type
	}
}
