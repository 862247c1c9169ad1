package rexel

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes produced by the client. Backend-specific codes are passed
// through verbatim when the server supplies one.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeNetwork         = "NETWORK_ERROR"
	CodeServer          = "SERVER_ERROR"
	CodeRequest         = "REQUEST_ERROR"
)

const networkErrorMessage = "network connection error"

// Sentinel errors for use with errors.Is; they match any *APIError carrying
// the same code.
var (
	ErrUnauthenticated = &APIError{Code: CodeUnauthenticated}
	ErrNetwork         = &APIError{Code: CodeNetwork}
	ErrServer          = &APIError{Code: CodeServer}
	ErrRequest         = &APIError{Code: CodeRequest}
)

// APIError is the single error type returned by every Client operation.
type APIError struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Status  int            `json:"status"`
	Details map[string]any `json:"details,omitempty"`

	Cause     error  `json:"-"`
	RequestID string `json:"-"`
	Method    string `json:"-"`
	URL       string `json:"-"`
}

// Error implements error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error codes for errors.Is.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*APIError); ok {
		return e.Code == targetErr.Code
	}
	return false
}

// AsAPIError extracts the *APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsTransient reports whether err is worth retrying: network failures,
// 5xx responses and 429.
func IsTransient(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch {
	case apiErr.Code == CodeNetwork:
		return true
	case apiErr.Status == http.StatusTooManyRequests:
		return true
	case apiErr.Status >= 500 && apiErr.Code != CodeRequest:
		return true
	default:
		return false
	}
}

// sendError marks a failure that happened after the request was handed to
// the transport: the request went out but no response came back.
type sendError struct {
	err error
}

func (e *sendError) Error() string { return e.err.Error() }

func (e *sendError) Unwrap() error { return e.err }

// TransformError collapses a failed call into an *APIError. resp and body
// describe a received error response; err is a failure without one.
func TransformError(resp *http.Response, body []byte, err error) *APIError {
	if apiErr, ok := AsAPIError(err); ok && resp == nil {
		return apiErr
	}

	if resp != nil {
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("request failed with status code %d", resp.StatusCode),
			Code:    CodeServer,
			Cause:   err,
		}
		applyServerFields(apiErr, body)
		return apiErr
	}

	var sendErr *sendError
	if errors.As(err, &sendErr) {
		return &APIError{
			Message: networkErrorMessage,
			Code:    CodeNetwork,
			Status:  0,
			Cause:   sendErr.err,
		}
	}

	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &APIError{
		Message: msg,
		Code:    CodeRequest,
		Status:  http.StatusInternalServerError,
		Cause:   err,
	}
}

// applyServerFields copies message, code and details from a JSON error body.
func applyServerFields(apiErr *APIError, body []byte) {
	if len(body) == 0 {
		return
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return
	}

	var msg string
	if raw, ok := fields["message"]; ok && json.Unmarshal(raw, &msg) == nil && strings.TrimSpace(msg) != "" {
		apiErr.Message = msg
	}
	var code string
	if raw, ok := fields["code"]; ok && json.Unmarshal(raw, &code) == nil && code != "" {
		apiErr.Code = code
	}
	var details map[string]any
	if raw, ok := fields["details"]; ok && json.Unmarshal(raw, &details) == nil && details != nil {
		apiErr.Details = details
	}
}
