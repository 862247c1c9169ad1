package rexel

import (
	"context"
	"net/http"
	"time"
)

// Middleware wraps the network round trip of a request. It sees every
// attempt, after route rewriting and header injection.
type Middleware func(req *http.Request, next RoundTripper) (*http.Response, error)

// RequestInterceptor mutates an outgoing request before it reaches the
// cache, the in-flight tracker or the network. Returning an error aborts the
// call without any I/O.
type RequestInterceptor func(req *http.Request, route RouteClass) error

// RoundTripper represents the HTTP transport interface
type RoundTripper interface {
	RoundTrip(*http.Request) (*http.Response, error)
}

// RoundTripperFunc is a helper type for middleware
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Option represents a configuration option
type Option func(*Client)

type contextKey string

const (
	requestIDKey    contextKey = "rexel_request_id"
	requestStartKey contextKey = "rexel_request_start"
)

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id the client assigned to the request
// carried by ctx, or "" when there is none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func withRequestStart(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestStartKey, t)
}

func requestStart(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(requestStartKey).(time.Time)
	return t, ok
}
