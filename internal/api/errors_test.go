package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"evalgo.org/fireedge/internal/auth"
	"evalgo.org/fireedge/internal/command"
	"evalgo.org/fireedge/internal/hooks"
	"evalgo.org/fireedge/internal/oneflow"
	"evalgo.org/fireedge/internal/opennebula"
	"evalgo.org/fireedge/internal/validation"
	"evalgo.org/fireedge/internal/zones"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{
			name: "error with details",
			apiError: &APIError{
				Code:    400,
				Message: "Bad Request",
				Details: "Invalid JSON format",
			},
			want: "Bad Request: Invalid JSON format",
		},
		{
			name: "error without details",
			apiError: &APIError{
				Code:    404,
				Message: "Not Found",
			},
			want: "Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBadRequestError(t *testing.T) {
	err := BadRequestError("Invalid input", "Field 'name' is required")

	if err.Code != http.StatusBadRequest {
		t.Errorf("BadRequestError().Code = %v, want %v", err.Code, http.StatusBadRequest)
	}
	if err.Message != "Invalid input" {
		t.Errorf("BadRequestError().Message = %v, want %v", err.Message, "Invalid input")
	}
	if err.Details != "Field 'name' is required" {
		t.Errorf("BadRequestError().Details = %v, want %v", err.Details, "Field 'name' is required")
	}
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("VM", "42")

	if err.Code != http.StatusNotFound {
		t.Errorf("NotFoundError().Code = %v, want %v", err.Code, http.StatusNotFound)
	}
	if err.Message != "VM not found" {
		t.Errorf("NotFoundError().Message = %v, want %v", err.Message, "VM not found")
	}
	if err.Context == nil {
		t.Error("NotFoundError().Context is nil, want non-nil")
	}
	if id, ok := err.Context["id"].(string); !ok || id != "42" {
		t.Errorf("NotFoundError().Context['id'] = %v, want '42'", id)
	}
}

func TestValidationError(t *testing.T) {
	fieldErrors := map[string]string{
		"name":  "Name is required",
		"email": "Invalid email format",
	}
	err := ValidationError("Validation failed", fieldErrors)

	if err.Code != http.StatusBadRequest {
		t.Errorf("ValidationError().Code = %v, want %v", err.Code, http.StatusBadRequest)
	}
	if err.Message != "Validation failed" {
		t.Errorf("ValidationError().Message = %v, want %v", err.Message, "Validation failed")
	}
	if len(err.FieldError) != 2 {
		t.Errorf("ValidationError().FieldError length = %v, want 2", len(err.FieldError))
	}
	if err.FieldError["name"] != "Name is required" {
		t.Errorf("ValidationError().FieldError['name'] = %v, want 'Name is required'", err.FieldError["name"])
	}
}

func TestInternalError(t *testing.T) {
	err := InternalError("Failed to decode oned response", "unexpected EOF")

	if err.Code != http.StatusInternalServerError {
		t.Errorf("InternalError().Code = %v, want %v", err.Code, http.StatusInternalServerError)
	}
	if err.Message != "Failed to decode oned response" {
		t.Errorf("InternalError().Message = %v, want %v", err.Message, "Failed to decode oned response")
	}
	if err.Details != "unexpected EOF" {
		t.Errorf("InternalError().Details = %v, want %v", err.Details, "unexpected EOF")
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	err := MethodNotAllowedError(http.MethodGet, http.MethodDelete)

	if err.Code != http.StatusMethodNotAllowed {
		t.Errorf("MethodNotAllowedError().Code = %v, want %v", err.Code, http.StatusMethodNotAllowed)
	}
	if err.Details != "GET is not allowed, use DELETE" {
		t.Errorf("MethodNotAllowedError().Details = %v", err.Details)
	}
	if err.Context["allow"] != http.MethodDelete {
		t.Errorf("MethodNotAllowedError().Context['allow'] = %v, want DELETE", err.Context["allow"])
	}
}

func TestGetHTTPMessage(t *testing.T) {
	tests := []struct {
		name string
		code int
		want string
	}{
		{"Bad Request", http.StatusBadRequest, "Bad request"},
		{"Not Found", http.StatusNotFound, "Resource not found"},
		{"Locked", http.StatusLocked, "Resource locked"},
		{"Internal Server Error", http.StatusInternalServerError, "Internal server error"},
		{"Unknown Code", 999, http.StatusText(999)}, // Falls back to http.StatusText for unknown codes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getHTTPMessage(tt.code); got != tt.want {
				t.Errorf("getHTTPMessage() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"api error", BadRequestError("x", "y"), http.StatusBadRequest},
		{"echo error", echo.NewHTTPError(http.StatusUnauthorized, "missing"), http.StatusUnauthorized},
		{"oned authentication", &opennebula.Error{Code: opennebula.CodeAuthentication}, http.StatusUnauthorized},
		{"oned authorization", &opennebula.Error{Code: opennebula.CodeAuthorization}, http.StatusForbidden},
		{"oned no exists", fmt.Errorf("wrapped: %w", &opennebula.Error{Code: opennebula.CodeNoExists}), http.StatusNotFound},
		{"oned locked", &opennebula.Error{Code: opennebula.CodeLocked}, http.StatusLocked},
		{"oned unreachable", &opennebula.TransportError{Err: errors.New("refused")}, http.StatusBadGateway},
		{"oneflow error", &oneflow.Error{Status: http.StatusConflict}, http.StatusConflict},
		{"validation", validation.Errors{{Field: "user", Message: "user is required"}}, http.StatusBadRequest},
		{"unknown command", fmt.Errorf("%w: /vm/fly", command.ErrUnknownCommand), http.StatusNotFound},
		{"missing param", fmt.Errorf("%w: id", command.ErrMissingParam), http.StatusBadRequest},
		{"invalid param", command.ErrInvalidParam, http.StatusBadRequest},
		{"unknown zone", zones.ErrZoneNotFound, http.StatusNotFound},
		{"missing resource", hooks.ErrMissingResource, http.StatusBadRequest},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toAPIError(tt.err); got.Code != tt.wantCode {
				t.Errorf("toAPIError(%v).Code = %v, want %v", tt.err, got.Code, tt.wantCode)
			}
		})
	}
}

func TestToAPIError_PassesOnedMessage(t *testing.T) {
	err := toAPIError(&opennebula.Error{
		Method:  "one.vm.info",
		Code:    opennebula.CodeNoExists,
		Message: "[one.vm.info] Error getting virtual machine [42].",
	})

	if err.Details != "[one.vm.info] Error getting virtual machine [42]." {
		t.Errorf("toAPIError().Details = %v", err.Details)
	}
	if err.Context["method"] != "one.vm.info" {
		t.Errorf("toAPIError().Context['method'] = %v", err.Context["method"])
	}
}

func TestHTTPErrorHandler(t *testing.T) {
	e := echo.New()

	t.Run("hides internal details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		HTTPErrorHandler(errors.New("secret detail"), c)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %v, want 500", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "secret detail") {
			t.Errorf("body leaks internal error: %s", rec.Body.String())
		}
	})

	t.Run("sets allow header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

		HTTPErrorHandler(MethodNotAllowedError(http.MethodGet, http.MethodPost), c)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %v, want 405", rec.Code)
		}
		if got := rec.Header().Get(echo.HeaderAllow); got != http.MethodPost {
			t.Errorf("Allow = %q, want POST", got)
		}
	})
}
