package rexel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	maxBodySize    = 10 * 1024 * 1024
	defaultBaseURL = "http://localhost:3333"
)

// Client is the shared HTTP client every feature of the admin application
// goes through. It rewrites logical routes, injects credentials, caches and
// deduplicates GETs, retries on request and normalizes results and errors.
// Construct one per process and share it; it is safe for concurrent use.
type Client struct {
	httpClient    *http.Client
	baseURL       *url.URL
	timeout       time.Duration
	routes        RoutePrefixes
	tokens        TokenSource
	sessions      SessionStore
	sessionHeader string
	cache         Cache
	cacheTTL      time.Duration
	inflight      *InFlightTracker
	retryDefaults RetryConfig
	interceptors  []RequestInterceptor
	middleware    []Middleware
	limiter       *rate.Limiter
	metrics       *MetricsCollector
	logger        zerolog.Logger
	requestIDGen  func() string
	healthPath    string
	healthTimeout time.Duration

	now   func() time.Time
	sleep sleepFunc

	optionErrors    []string
	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for
// errors. Calls on an invalid client fail with REQUEST_ERROR.
func New(options ...Option) *Client {
	base, _ := url.Parse(defaultBaseURL)
	client := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		timeout:       30 * time.Second,
		routes:        DefaultRoutePrefixes(),
		tokens:        NewMemoryTokenStore(""),
		sessionHeader: "X-Session-ID",
		cache:         NewInMemoryCache(),
		cacheTTL:      5 * time.Minute,
		inflight:      NewInFlightTracker(),
		retryDefaults: DefaultRetryConfig(),
		middleware:    []Middleware{},
		logger:        zerolog.Nop(),
		requestIDGen:  uuid.NewString,
		healthPath:    "health",
		healthTimeout: 5 * time.Second,
		now:           time.Now,
		sleep:         sleepContext,
	}
	client.interceptors = []RequestInterceptor{client.authorize, client.attachSession}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Get fetches path. GETs are cached and deduplicated unless WithoutCache
// is given.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, newRequestConfig(opts))
}

// Post sends data as JSON. Mutations are never cached.
func (c *Client) Post(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, data, newRequestConfig(opts))
}

func (c *Client) Put(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, data, newRequestConfig(opts))
}

func (c *Client) Patch(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodPatch, path, data, newRequestConfig(opts))
}

// Delete sends a DELETE; data may be nil.
func (c *Client) Delete(ctx context.Context, path string, data any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, data, newRequestConfig(opts))
}

func (c *Client) do(ctx context.Context, method, path string, data any, rc *RequestConfig) (*Response, error) {
	if c.validationError != nil {
		return nil, &APIError{
			Message: "invalid client configuration",
			Code:    CodeRequest,
			Status:  http.StatusInternalServerError,
			Cause:   c.validationError,
			Method:  method,
			URL:     path,
		}
	}

	if rc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.Timeout)
		defer cancel()
	}

	req, route, err := c.newRequest(ctx, method, path, data, rc)
	if err != nil {
		return nil, c.fail(req, method, path, route, nil, nil, err)
	}
	ctx = req.Context()

	if method == http.MethodGet && rc.cacheEnabled() {
		if _, ok := rc.retryConfig(c.retryDefaults); ok {
			c.logEvent(c.logger.Debug(), req).Msg("retry ignored for cached request")
		}
		return c.cachedGet(ctx, req, route, rc.ttl(c.cacheTTL))
	}

	if cfg, ok := rc.retryConfig(c.retryDefaults); ok {
		return retry(ctx, cfg, c.sleep, c.retryObserver(req, route), func(ctx context.Context) (*Response, error) {
			return c.send(ctx, req, route)
		})
	}
	return c.send(ctx, req, route)
}

// newRequest rewrites the route, builds the request and runs the request
// interceptors. On error the returned request may be nil.
func (c *Client) newRequest(ctx context.Context, method, rawPath string, data any, rc *RequestConfig) (*http.Request, RouteClass, error) {
	route, rewritten := c.routes.Rewrite(rawPath)

	target, err := c.resolve(rewritten, rc.Params)
	if err != nil {
		return nil, route, fmt.Errorf("build url %q: %w", rawPath, err)
	}

	payload, err := encodeBody(data)
	if err != nil {
		return nil, route, fmt.Errorf("encode body: %w", err)
	}
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	ctx = withRequestID(ctx, c.requestIDGen())
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, route, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range rc.Header {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	for _, intercept := range c.interceptors {
		if err := intercept(req, route); err != nil {
			return req, route, err
		}
	}
	return req, route, nil
}

// resolve joins a rewritten path onto the base URL and merges params into
// its query. Absolute URLs are used as given.
func (c *Client) resolve(rewritten string, params url.Values) (*url.URL, error) {
	ref, err := url.Parse(rewritten)
	if err != nil {
		return nil, err
	}

	var target url.URL
	if ref.IsAbs() {
		target = *ref
	} else {
		if c.baseURL == nil {
			return nil, fmt.Errorf("no base URL for relative path %q", rewritten)
		}
		target = *c.baseURL
		target.Path = path.Join("/", target.Path, ref.Path)
		if strings.HasSuffix(ref.Path, "/") && !strings.HasSuffix(target.Path, "/") {
			target.Path += "/"
		}
		target.RawPath = ""
	}

	query := ref.Query()
	for name, values := range params {
		for _, v := range values {
			query.Add(name, v)
		}
	}
	target.RawQuery = query.Encode()
	target.Fragment = ""
	return &target, nil
}

func encodeBody(data any) ([]byte, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case string:
		return []byte(v), nil
	case io.Reader:
		return io.ReadAll(v)
	default:
		return json.Marshal(v)
	}
}

// cachedGet serves a GET from the cache, joins an identical in-flight
// fetch, or starts one and caches its successful result.
func (c *Client) cachedGet(ctx context.Context, req *http.Request, route RouteClass, ttl time.Duration) (*Response, error) {
	key := CacheKey(req.URL, nil)

	if entry, ok := c.cache.Get(key); ok {
		c.metrics.RecordCacheHit(route)
		c.logEvent(c.logger.Debug(), req).Str("cache_key", key).Msg("cache hit")
		return entry.Data.clone(), nil
	}
	c.metrics.RecordCacheMiss(route)

	resp, joined, err := c.inflight.Do(ctx, key, func(fetchCtx context.Context) (*Response, error) {
		// A fetch that settled between the miss above and this call
		// already stored its result.
		if entry, ok := c.cache.Get(key); ok {
			return entry.Data, nil
		}
		resp, err := c.send(fetchCtx, req, route)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, &CacheEntry{Data: resp}, ttl)
		c.metrics.RecordCacheSize(c.cache.Len())
		c.logEvent(c.logger.Debug(), req).Str("cache_key", key).Dur("ttl", ttl).Msg("response cached")
		return resp, nil
	})

	if joined {
		c.metrics.RecordDeduplicationHit(route)
		c.logEvent(c.logger.Debug(), req).Str("cache_key", key).Msg("joined in-flight request")
	}
	if err != nil {
		if _, ok := AsAPIError(err); !ok {
			// The caller gave up waiting on a request that is still out.
			return nil, c.fail(req, req.Method, req.URL.String(), route, nil, nil, &sendError{err: err})
		}
		return nil, err
	}
	return resp.clone(), nil
}

// send performs one network attempt through the middleware chain and
// normalizes its outcome.
func (c *Client) send(ctx context.Context, req *http.Request, route RouteClass) (*Response, error) {
	attempt := req.Clone(withRequestStart(ctx, c.now()))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, c.fail(attempt, req.Method, req.URL.String(), route, nil, nil, err)
		}
		attempt.Body = body
	}

	resp, err := c.executeMiddleware(attempt, route)
	if err != nil {
		return nil, c.fail(attempt, req.Method, req.URL.String(), route, nil, nil, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, c.fail(attempt, req.Method, req.URL.String(), route, nil, nil, &sendError{err: err})
	}
	if len(body) > maxBodySize {
		return nil, c.fail(attempt, req.Method, req.URL.String(), route, nil, nil,
			fmt.Errorf("response body exceeds %d bytes (status %d)", maxBodySize, resp.StatusCode))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(attempt, req.Method, req.URL.String(), route, resp, body, nil)
	}

	out := Normalize(body, resp.StatusCode, c.now())
	out.Header = resp.Header.Clone()
	return out, nil
}

func (c *Client) executeMiddleware(req *http.Request, route RouteClass) (*http.Response, error) {
	current := RoundTripperFunc(c.transport)

	chain := make([]Middleware, 0, len(c.middleware)+2)
	chain = append(chain, c.timing(route))
	chain = append(chain, c.middleware...)
	if c.limiter != nil {
		chain = append(chain, c.rateLimit)
	}

	for i := len(chain) - 1; i >= 0; i-- {
		middleware := chain[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// transport hands the request to net/http. Any failure from here on means
// the request left without a response coming back.
func (c *Client) transport(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &sendError{err: err}
	}
	return resp, nil
}

// fail converts err into the client's *APIError, tags it with request
// details and counts it.
func (c *Client) fail(req *http.Request, method, rawURL string, route RouteClass, resp *http.Response, body []byte, err error) *APIError {
	apiErr := TransformError(resp, body, err)
	if apiErr.Method == "" {
		apiErr.Method = method
	}
	if apiErr.URL == "" {
		apiErr.URL = rawURL
	}
	if apiErr.RequestID == "" && req != nil {
		apiErr.RequestID = RequestIDFromContext(req.Context())
	}

	c.metrics.RecordError(apiErr.Code, method, route)
	c.logger.Debug().
		Str("request_id", apiErr.RequestID).
		Str("method", apiErr.Method).
		Str("url", apiErr.URL).
		Str("code", apiErr.Code).
		Int("status", apiErr.Status).
		Msg(apiErr.Message)
	return apiErr
}

func (c *Client) retryObserver(req *http.Request, route RouteClass) retryHook {
	return func(nextAttempt int, delay time.Duration, err error) {
		c.metrics.RecordRetry(req.Method, route, nextAttempt)
		c.logEvent(c.logger.Info(), req).
			Int("attempt", nextAttempt).
			Dur("backoff", delay).
			AnErr("last_error", err).
			Msg("scheduling retry")
	}
}

func (c *Client) logEvent(event *zerolog.Event, req *http.Request) *zerolog.Event {
	return event.
		Str("request_id", RequestIDFromContext(req.Context())).
		Str("method", req.Method).
		Str("url", req.URL.String())
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}
