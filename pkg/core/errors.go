// Package core provides shared error handling, HTTP retry logic and the
// map API client used by the building pipeline.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmbuildings/pkg/osm"
)

// ErrorCode identifies a class of failure
type ErrorCode string

// Standard error codes
const (
	// Reconstruction errors
	ErrNotFound            ErrorCode = "NOT_FOUND"
	ErrIncompleteRing      ErrorCode = "INCOMPLETE_RING"
	ErrDegenerateFootprint ErrorCode = "DEGENERATE_FOOTPRINT"
	ErrUnmeshableFootprint ErrorCode = "UNMESHABLE_FOOTPRINT"
	ErrUnresolvedReference ErrorCode = "UNRESOLVED_REFERENCE"

	// Input validation errors
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Service errors
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrServiceTimeout     ErrorCode = "SERVICE_TIMEOUT"
	ErrRateLimit          ErrorCode = "RATE_LIMIT"
	ErrNetworkError       ErrorCode = "NETWORK_ERROR"

	// Data errors
	ErrParseError    ErrorCode = "PARSE_ERROR"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Error is the error type returned across the reconstruction pipeline.
// Element names the offending map element when one is known.
type Error struct {
	Code     ErrorCode      `json:"code"`
	Element  osm.ElementRef `json:"element,omitempty"`
	Message  string         `json:"message"`
	Guidance string         `json:"guidance,omitempty"`
	Err      error          `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Code)
	if !e.Element.IsZero() {
		msg += " " + e.Element.String()
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Guidance != "" {
		msg += ". " + e.Guidance
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new Error with a formatted message
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// WithElement records the element the error refers to
func (e *Error) WithElement(ref osm.ElementRef) *Error {
	e.Element = ref
	return e
}

// WithGuidance adds guidance information to the error
func (e *Error) WithGuidance(guidance string) *Error {
	e.Guidance = guidance
	return e
}

// WithCause attaches an underlying error
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// ToMCPResult converts the error to an MCP tool result
func (e *Error) ToMCPResult() *mcp.CallToolResult {
	errorJSON, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ERROR: %s - %s", e.Code, e.Message))
	}
	return mcp.NewToolResultError(string(errorJSON))
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err's chain contains an *Error with the given code
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Err
	}
	return false
}

// AsError converts any error to an *Error, wrapping unknown errors as INTERNAL_ERROR
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(ErrInternalError, "unexpected error").WithCause(err)
}

// ServiceError creates an error for external service failures
func ServiceError(service string, statusCode int, message string) *Error {
	var code ErrorCode
	var guidance string

	switch statusCode {
	case http.StatusNotFound, http.StatusGone:
		code = ErrNotFound
		guidance = "The element does not exist or has been deleted. Check the id and its kind."
	case http.StatusTooManyRequests, 509:
		code = ErrRateLimit
		guidance = "The service is rate-limited. Please try again in a few moments."
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		code = ErrServiceTimeout
		guidance = "The request timed out. Please try again later."
	case http.StatusBadRequest:
		code = ErrInvalidInput
		guidance = "The request was invalid. The bounding box may cover too many nodes."
	case http.StatusInternalServerError:
		code = ErrInternalError
		guidance = "The server encountered an error. This is likely temporary, please try again later."
	default:
		code = ErrServiceUnavailable
		guidance = "The service is temporarily unavailable. Please try again later."
	}

	return Errorf(code, "%s service error: %s", service, message).
		WithGuidance(guidance)
}

// retryable reports whether a failed request may succeed on another attempt
func retryable(err error) bool {
	switch CodeOf(err) {
	case ErrNotFound, ErrInvalidInput:
		return false
	}
	return true
}
