package rexel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const unauthenticatedMessage = "authentication required for secured route"

// authorize attaches the bearer token to secured requests. The token is
// read on every request; without one the call fails before any I/O.
func (c *Client) authorize(req *http.Request, route RouteClass) error {
	if route != RouteSecured {
		return nil
	}

	token, err := c.tokens.Token(req.Context())
	if err == nil && token == "" {
		err = ErrNoToken
	}
	if err != nil {
		c.logEvent(c.logger.Warn(), req).Err(err).Msg("secured request without auth token")
		cause := err
		if errors.Is(err, ErrNoToken) {
			cause = nil
		}
		return &APIError{
			Message: unauthenticatedMessage,
			Code:    CodeUnauthenticated,
			Status:  http.StatusUnauthorized,
			Cause:   cause,
		}
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// attachSession adds the anonymous session id to public requests.
func (c *Client) attachSession(req *http.Request, route RouteClass) error {
	if route != RoutePublic || c.sessions == nil {
		return nil
	}
	if id, ok := c.sessions.SessionID(req.Context()); ok && id != "" {
		req.Header.Set(c.sessionHeader, id)
	}
	return nil
}

// timing measures each attempt and logs its outcome.
func (c *Client) timing(route RouteClass) Middleware {
	return func(req *http.Request, next RoundTripper) (*http.Response, error) {
		start, ok := requestStart(req.Context())
		if !ok {
			start = c.now()
		}

		c.metrics.RecordRequestStart(req.Method, route)
		resp, err := next.RoundTrip(req)
		c.metrics.RecordRequestEnd(req.Method, route)
		duration := c.now().Sub(start)

		if err != nil {
			c.metrics.RecordRequest(req.Method, route, 0, duration)
			c.logEvent(c.logger.Warn(), req).Dur("duration", duration).Err(err).Msg("request failed")
			return nil, err
		}

		c.metrics.RecordRequest(req.Method, route, resp.StatusCode, duration)
		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			c.logEvent(c.logger.Warn(), req).Int("status", resp.StatusCode).Dur("duration", duration).
				Msg("unauthorized response, session may have expired")
		case resp.StatusCode >= http.StatusBadRequest:
			c.logEvent(c.logger.Warn(), req).Int("status", resp.StatusCode).Dur("duration", duration).Msg("request failed")
		default:
			c.logEvent(c.logger.Debug(), req).Int("status", resp.StatusCode).Dur("duration", duration).Msg("request completed")
		}
		return resp, nil
	}
}

// rateLimit holds the request until the client-wide limiter admits it.
func (c *Client) rateLimit(req *http.Request, next RoundTripper) (*http.Response, error) {
	waitStart := time.Now()
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		// Running out of time in the queue is reported like running out
		// of time on the wire.
		if ctx.Err() != nil {
			return nil, &sendError{err: context.Cause(ctx)}
		}
		if _, ok := ctx.Deadline(); ok {
			return nil, &sendError{err: fmt.Errorf("%w: %w", context.DeadlineExceeded, err)}
		}
		return nil, err
	}
	if waited := time.Since(waitStart); waited > time.Millisecond {
		c.logEvent(c.logger.Debug(), req).Dur("waited", waited).Msg("rate limited")
	}
	return next.RoundTrip(req)
}
