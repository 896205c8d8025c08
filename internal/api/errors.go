package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tphakala/securitas/internal/detection"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error         string         `json:"error"`
	Message       string         `json:"message"`
	Code          int            `json:"code"`
	CorrelationID string         `json:"correlation_id"`
	Details       map[string]any `json:"details,omitempty"`
}

// NewErrorResponse creates an error response with a fresh correlation id.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: uuid.NewString()[:8],
	}
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsConflict(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// details exposes the typed error payloads operators reconcile against.
func details(err error) map[string]any {
	var missing *detection.MissingIDsError
	if errors.As(err, &missing) {
		return map[string]any{"missing_ids": missing.IDs}
	}
	var resolved *detection.AlreadyResolvedError
	if errors.As(err, &resolved) {
		return map[string]any{
			"ids":              resolved.IDs,
			"already_approved": resolved.Approved,
			"already_expired":  resolved.Expired,
		}
	}
	return nil
}

// HandleError writes err as an ErrorResponse. Server errors are logged with
// their correlation id and the client only sees message.
func (c *Controller) HandleError(ctx echo.Context, err error, message string) error {
	code := statusFor(err)
	resp := NewErrorResponse(err, message, code)
	resp.Details = details(err)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("method", ctx.Request().Method),
		logger.String("path", ctx.Request().URL.Path),
		logger.Int("status", code),
		logger.Error(err),
	}
	if code >= http.StatusInternalServerError {
		resp.Error = http.StatusText(code)
		c.log.Error(message, fields...)
	} else {
		c.log.Debug(message, fields...)
	}
	return ctx.JSON(code, resp)
}
