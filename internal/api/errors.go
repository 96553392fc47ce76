package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/auth"
	"evalgo.org/fireedge/internal/command"
	"evalgo.org/fireedge/internal/hooks"
	"evalgo.org/fireedge/internal/logging"
	"evalgo.org/fireedge/internal/oneflow"
	"evalgo.org/fireedge/internal/opennebula"
	"evalgo.org/fireedge/internal/validation"
	"evalgo.org/fireedge/internal/zones"
)

// APIError represents a structured API error with HTTP status code.
type APIError struct {
	Code       int                    `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	FieldError map[string]string      `json:"field_errors,omitempty"`
	Context    map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

// NewAPIError creates a new API error.
func NewAPIError(code int, message string, details string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common error constructors
func BadRequestError(message, details string) *APIError {
	return NewAPIError(http.StatusBadRequest, message, details)
}

func NotFoundError(resource, id string) *APIError {
	return &APIError{
		Code:    http.StatusNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Context: map[string]interface{}{"id": id},
	}
}

func ValidationError(message string, fieldErrors map[string]string) *APIError {
	return &APIError{
		Code:       http.StatusBadRequest,
		Message:    message,
		FieldError: fieldErrors,
	}
}

func InternalError(message, details string) *APIError {
	return NewAPIError(http.StatusInternalServerError, message, details)
}

func MethodNotAllowedError(method, allowed string) *APIError {
	return &APIError{
		Code:    http.StatusMethodNotAllowed,
		Message: getHTTPMessage(http.StatusMethodNotAllowed),
		Details: fmt.Sprintf("%s is not allowed, use %s", method, allowed),
		Context: map[string]interface{}{"allow": allowed},
	}
}

// toAPIError translates errors from the gateway's packages into API errors.
// Upstream messages are passed through as details.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return &APIError{
			Code:    he.Code,
			Message: getHTTPMessage(he.Code),
			Details: fmt.Sprintf("%v", he.Message),
		}
	}

	var oneErr *opennebula.Error
	if errors.As(err, &oneErr) {
		return &APIError{
			Code:    oneErr.HTTPStatus(),
			Message: getHTTPMessage(oneErr.HTTPStatus()),
			Details: oneErr.Message,
			Context: map[string]interface{}{"method": oneErr.Method, "error_code": oneErr.Code},
		}
	}

	var flowErr *oneflow.Error
	if errors.As(err, &flowErr) {
		return NewAPIError(flowErr.Status, getHTTPMessage(flowErr.Status), flowErr.Message())
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		return ValidationError("Validation failed", fieldErrs.Fields())
	}

	if status := opennebula.StatusOf(err); status != 0 {
		return NewAPIError(status, getHTTPMessage(status), err.Error())
	}

	switch {
	case errors.Is(err, command.ErrUnknownCommand), errors.Is(err, zones.ErrZoneNotFound):
		return NewAPIError(http.StatusNotFound, getHTTPMessage(http.StatusNotFound), err.Error())
	case errors.Is(err, command.ErrMissingParam), errors.Is(err, command.ErrInvalidParam),
		errors.Is(err, hooks.ErrMissingResource):
		return BadRequestError(getHTTPMessage(http.StatusBadRequest), err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken):
		return NewAPIError(http.StatusUnauthorized, getHTTPMessage(http.StatusUnauthorized), err.Error())
	}

	return InternalError("Internal server error", err.Error())
}

// HTTPErrorHandler is a custom error handler for Echo.
func HTTPErrorHandler(err error, c echo.Context) {
	// Don't send response if already sent
	if c.Response().Committed {
		return
	}

	apiErr := toAPIError(err)
	code := apiErr.Code

	if code >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("request failed", zap.Error(err))
	}

	// Don't expose internal errors in production
	if code == http.StatusInternalServerError && !c.Echo().Debug {
		apiErr.Details = "An internal error occurred. Please try again later."
	}

	if allow, ok := apiErr.Context["allow"].(string); ok && code == http.StatusMethodNotAllowed {
		c.Response().Header().Set(echo.HeaderAllow, allow)
	}

	// Send JSON response
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, apiErr)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

// getHTTPMessage returns a user-friendly message for HTTP status codes.
func getHTTPMessage(code int) string {
	messages := map[int]string{
		http.StatusBadRequest:          "Bad request",
		http.StatusUnauthorized:        "Unauthorized",
		http.StatusForbidden:           "Forbidden",
		http.StatusNotFound:            "Resource not found",
		http.StatusMethodNotAllowed:    "Method not allowed",
		http.StatusConflict:            "Conflict",
		http.StatusLocked:              "Resource locked",
		http.StatusUnprocessableEntity: "Unprocessable entity",
		http.StatusTooManyRequests:     "Too many requests",
		http.StatusInternalServerError: "Internal server error",
		http.StatusBadGateway:          "Bad gateway",
		http.StatusServiceUnavailable:  "Service unavailable",
	}

	if msg, ok := messages[code]; ok {
		return msg
	}
	return http.StatusText(code)
}
