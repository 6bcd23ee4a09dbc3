// Package tradestation is a client for the TradeStation brokerage HTTP API.
// It owns the OAuth2 session (authorization-code exchange and single-flight
// refresh), the authenticated request pipeline with the shared success/error
// response envelope, and the NDJSON stream engine. The endpoint surfaces in
// brokerage, marketdata, and orderexecution are built on top of it.
package tradestation

import (
	"fmt"
)

// Error codes for every failure this module can surface.
const (
	// CodeInvalidToken means no usable token is held by the client.
	CodeInvalidToken = "invalid_token"
	// CodeTokenConfig covers token acquisition and token validation failures.
	CodeTokenConfig = "token_config"
	// CodeTransport covers connection, DNS, and body-read faults.
	CodeTransport = "transport"
	// CodeDecode means a response or stream line was not decodable.
	CodeDecode = "json_decode"
	// CodeStreamStopped is the cooperative-stop control signal, not a fault.
	CodeStreamStopped = "stream_stopped"

	// Remote error kinds, mapped from the API error envelope.
	CodeBadRequest          = "bad_request"
	CodeUnauthorized        = "unauthorized"
	CodeForbidden           = "forbidden"
	CodeTooManyRequests     = "too_many_requests"
	CodeInternalServerError = "internal_server_error"
	CodeGatewayTimeout      = "gateway_timeout"
	CodeUnknownAPIError     = "unknown_api_error"

	// Validation kinds owned by the endpoint builders.
	CodeMissingField = "missing_field"
	CodeNotFound     = "not_found"
)

// Error is the structured error returned by every operation in this module.
type Error struct {
	Code       string // one of the Code constants above
	Message    string
	HTTPStatus int   // zero when no HTTP response was involved
	Cause      error // underlying transport or decode error, if any
}

func (e *Error) Error() string {
	if e.Message == "" && e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so errors.Is(err, ErrStopStream) and friends
// work across wrapped values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// ErrStopStream is the control signal a stream callback returns to end the
// stream cleanly. The push surface translates it into a nil return; it is
// never delivered to callers as a fault.
var ErrStopStream = &Error{Code: CodeStreamStopped, Message: "stream stopped by caller"}

// ErrMissingField creates a builder validation error for a required field.
func ErrMissingField(field string) *Error {
	return &Error{Code: CodeMissingField, Message: fmt.Sprintf("required field %q is not set", field)}
}

// ErrNotFound creates a lookup error for a named resource.
func ErrNotFound(resource, identifier string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", resource, identifier)}
}

// ErrTokenConfig creates a token configuration error.
func ErrTokenConfig(msg string) *Error {
	return &Error{Code: CodeTokenConfig, Message: msg}
}

// ErrInvalidRequest creates a local request validation error. It shares the
// bad_request code with the remote kind so callers match both the same way.
func ErrInvalidRequest(msg string) *Error {
	return &Error{Code: CodeBadRequest, Message: msg}
}

// ErrDecode wraps a JSON decode failure.
func ErrDecode(cause error) *Error {
	return &Error{Code: CodeDecode, Message: "response decode failed", Cause: cause}
}

func errInvalidToken() *Error {
	return &Error{Code: CodeInvalidToken, Message: "no valid token; authorize the client or supply a token"}
}

func errTransport(cause error) *Error {
	return &Error{Code: CodeTransport, Message: "transport failure", Cause: cause}
}

// remoteErrorCodes maps the remote error strings to taxonomy codes. The match
// is exact and case-sensitive; anything else becomes unknown_api_error.
var remoteErrorCodes = map[string]string{
	"BadRequest":          CodeBadRequest,
	"Unauthorized":        CodeUnauthorized,
	"Forbidden":           CodeForbidden,
	"TooManyRequests":     CodeTooManyRequests,
	"InternalServerError": CodeInternalServerError,
	"GatewayTimeout":      CodeGatewayTimeout,
}

func fromAPIError(httpStatus int, remote, message string) *Error {
	code, ok := remoteErrorCodes[remote]
	if !ok {
		code = CodeUnknownAPIError
	}
	return &Error{Code: code, Message: message, HTTPStatus: httpStatus}
}
