package rexel

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAPIErrorMessage(t *testing.T) {
	err := &APIError{Code: CodeServer, Message: "not found", Status: 404}

	expectedMsg := "SERVER_ERROR: not found (status 404)"
	if err.Error() != expectedMsg {
		t.Errorf("Expected '%s', got '%s'", expectedMsg, err.Error())
	}

	cause := errors.New("dial tcp: refused")
	withCause := &APIError{Code: CodeNetwork, Message: networkErrorMessage, Cause: cause, RequestID: "req-1"}
	expectedMsg = "[req-1] NETWORK_ERROR: network connection error: dial tcp: refused"
	if withCause.Error() != expectedMsg {
		t.Errorf("Expected '%s', got '%s'", expectedMsg, withCause.Error())
	}
}

func TestAPIErrorUnwrap(t *testing.T) {
	cause := errors.New("original error")
	err := &APIError{Code: CodeRequest, Message: "test message", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}

	var nilErr *APIError
	if nilErr.Unwrap() != nil {
		t.Error("Expected nil Unwrap on nil error")
	}
}

func TestAPIErrorIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("loading products: %w", &APIError{Code: CodeUnauthenticated, Status: 401})

	if !errors.Is(err, ErrUnauthenticated) {
		t.Error("Expected wrapped error to match ErrUnauthenticated")
	}
	if errors.Is(err, ErrServer) {
		t.Error("Expected wrapped error not to match ErrServer")
	}
}

func TestTransformErrorServerResponse(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusNotFound}
	body := []byte(`{"message":"not found","code":"PRODUCT_NOT_FOUND","details":{"id":"42"}}`)

	err := TransformError(resp, body, nil)

	if err.Message != "not found" {
		t.Errorf("Expected message 'not found', got %q", err.Message)
	}
	if err.Code != "PRODUCT_NOT_FOUND" {
		t.Errorf("Expected backend code to pass through, got %q", err.Code)
	}
	if err.Status != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", err.Status)
	}
	if err.Details["id"] != "42" {
		t.Errorf("Expected details to pass through, got %v", err.Details)
	}
}

func TestTransformErrorServerResponseWithoutDetail(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusBadGateway}

	err := TransformError(resp, []byte("<html>bad gateway</html>"), nil)

	if err.Code != CodeServer {
		t.Errorf("Expected SERVER_ERROR, got %q", err.Code)
	}
	if err.Message != "request failed with status code 502" {
		t.Errorf("Unexpected fallback message %q", err.Message)
	}
	if err.Status != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", err.Status)
	}
}

func TestTransformErrorNoResponse(t *testing.T) {
	cause := errors.New("connection reset")

	err := TransformError(nil, nil, &sendError{err: cause})

	if err.Code != CodeNetwork || err.Status != 0 || err.Message != "network connection error" {
		t.Errorf("Unexpected network error shape: %+v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("Expected cause to be preserved")
	}
}

func TestTransformErrorRequestSetup(t *testing.T) {
	err := TransformError(nil, nil, errors.New("encode body: unsupported type"))

	if err.Code != CodeRequest {
		t.Errorf("Expected REQUEST_ERROR, got %q", err.Code)
	}
	if err.Status != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", err.Status)
	}
	if err.Message != "encode body: unsupported type" {
		t.Errorf("Expected the original message, got %q", err.Message)
	}
}

func TestTransformErrorPassesAPIErrorThrough(t *testing.T) {
	original := &APIError{Code: CodeUnauthenticated, Status: 401, Message: "auth"}

	if got := TransformError(nil, nil, original); got != original {
		t.Errorf("Expected the same *APIError back, got %+v", got)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network", &APIError{Code: CodeNetwork}, true},
		{"server 503", &APIError{Code: CodeServer, Status: 503}, true},
		{"too many requests", &APIError{Code: CodeServer, Status: 429}, true},
		{"not found", &APIError{Code: CodeServer, Status: 404}, false},
		{"request setup", &APIError{Code: CodeRequest, Status: 500}, false},
		{"plain error", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}
