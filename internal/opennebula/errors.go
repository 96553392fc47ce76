package opennebula

import (
	"errors"
	"fmt"
	"net/http"
)

// oned error codes carried in the third element of a failed response.
const (
	CodeSuccess        = 0x0000
	CodeAuthentication = 0x0100
	CodeAuthorization  = 0x0200
	CodeNoExists       = 0x0400
	CodeAction         = 0x0800
	CodeXMLRPCAPI      = 0x1000
	CodeInternal       = 0x2000
	CodeAllocate       = 0x4000
	CodeLocked         = 0x8000
)

var (
	// ErrMalformedResponse is returned when oned answers with something other
	// than [success, result, code, ...].
	ErrMalformedResponse = errors.New("malformed oned response")
)

// Error is a failure reported by oned itself.
type Error struct {
	Method  string
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (code 0x%04x)", e.Method, e.Message, e.Code)
}

// HTTPStatus maps the oned error code to the status the gateway answers with.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeAuthorization:
		return http.StatusForbidden
	case CodeNoExists:
		return http.StatusNotFound
	case CodeAction, CodeXMLRPCAPI, CodeAllocate:
		return http.StatusBadRequest
	case CodeLocked:
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

// TransportError wraps failures reaching oned (network, HTTP, XML-RPC faults).
type TransportError struct {
	Endpoint string
	Method   string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPStatus is always 502: the upstream could not be consulted.
func (e *TransportError) HTTPStatus() int {
	return http.StatusBadGateway
}

// StatusOf returns the HTTP status for an error produced by this package,
// or 0 when err did not come from oned.
func StatusOf(err error) int {
	var oneErr *Error
	if errors.As(err, &oneErr) {
		return oneErr.HTTPStatus()
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr.HTTPStatus()
	}
	return 0
}
