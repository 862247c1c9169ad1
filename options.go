package rexel

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// WithBaseURL sets the backend origin every relative path is resolved
// against. A base path, if any, is kept in front of the route prefix.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		u, err := url.Parse(strings.TrimRight(raw, "/"))
		if err != nil {
			c.optionErrors = append(c.optionErrors, fmt.Sprintf("invalid base URL %q: %v", raw, err))
			return
		}
		c.baseURL = u
	}
}

// WithTimeout sets the transport timeout, fixed for the life of the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
		// Update timeout if it was set
		if client != nil && c.timeout != 0 {
			c.httpClient.Timeout = c.timeout
		}
	}
}

// WithCacheTTL sets the default lifetime of cached GET responses.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// WithCache sets a custom cache implementation
func WithCache(cache Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithTokenSource sets where secured requests read their bearer token.
// SetAuthToken and RemoveAuthToken work only when source is a TokenStore.
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		c.tokens = source
	}
}

// WithSessionStore sets where public requests read the session id.
func WithSessionStore(store SessionStore) Option {
	return func(c *Client) {
		c.sessions = store
	}
}

// WithSessionHeader renames the session header (default X-Session-ID).
func WithSessionHeader(name string) Option {
	return func(c *Client) {
		c.sessionHeader = name
	}
}

// WithRoutePrefixes sets the backend prefixes of the public and secured zones.
func WithRoutePrefixes(prefixes RoutePrefixes) Option {
	return func(c *Client) {
		c.routes = prefixes
	}
}

// WithRetryDefaults sets the values a per-call retry falls back to. It does
// not turn retrying on.
func WithRetryDefaults(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retryDefaults = cfg
	}
}

// WithMiddleware adds middleware to the client
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRequestInterceptor appends an interceptor after the built-in token
// and session interceptors.
func WithRequestInterceptor(interceptors ...RequestInterceptor) Option {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, interceptors...)
	}
}

// WithRateLimit caps outgoing requests client-wide. Callers wait for a
// token; retries and health checks count too.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithLogger sets the zerolog logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsRegistry enables metrics on a specific registerer.
func WithMetricsRegistry(registry prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollectorWithRegistry(registry)
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		c.requestIDGen = gen
	}
}

// WithHealthCheck sets the path and timeout HealthCheck uses.
func WithHealthCheck(path string, timeout time.Duration) Option {
	return func(c *Client) {
		c.healthPath = path
		c.healthTimeout = timeout
	}
}

// ValidateConfiguration validates the client configuration and returns an error if invalid
func (c *Client) ValidateConfiguration() error {
	var errors []string

	errors = append(errors, c.optionErrors...)
	errors = append(errors, c.validateTransportConfig()...)
	errors = append(errors, c.validateRouteConfig()...)
	errors = append(errors, c.validateCacheConfig()...)
	errors = append(errors, c.validateRetryConfig()...)
	errors = append(errors, c.validateAuthConfig()...)
	errors = append(errors, c.validateMiddlewareConfig()...)
	errors = append(errors, c.validateExtremeValues()...)

	if len(errors) > 0 {
		return &APIError{
			Message: "configuration validation failed",
			Code:    CodeRequest,
			Status:  http.StatusInternalServerError,
			Cause:   fmt.Errorf("validation errors: %v", errors),
		}
	}

	return nil
}

func (c *Client) validateTransportConfig() []string {
	var errors []string

	if c.httpClient == nil {
		errors = append(errors, "HTTP client cannot be nil")
	}
	if c.timeout <= 0 {
		errors = append(errors, "timeout must be positive")
	}
	if c.baseURL == nil {
		errors = append(errors, "base URL must be set")
	} else if !c.baseURL.IsAbs() || c.baseURL.Host == "" {
		errors = append(errors, fmt.Sprintf("base URL %q must be absolute", c.baseURL.String()))
	}
	if c.requestIDGen == nil {
		errors = append(errors, "request ID generator cannot be nil")
	}
	if c.healthTimeout <= 0 {
		errors = append(errors, "health check timeout must be positive")
	}

	return errors
}

func (c *Client) validateRouteConfig() []string {
	var errors []string

	if strings.Trim(c.routes.Public, "/") == "" {
		errors = append(errors, "public route prefix cannot be empty")
	}
	if strings.Trim(c.routes.Secured, "/") == "" {
		errors = append(errors, "secured route prefix cannot be empty")
	}

	return errors
}

// validateCacheConfig validates cache configuration
func (c *Client) validateCacheConfig() []string {
	var errors []string

	if c.cache == nil {
		errors = append(errors, "cache cannot be nil")
	}
	if c.cacheTTL <= 0 {
		errors = append(errors, "cacheTTL must be positive")
	}

	return errors
}

// validateRetryConfig validates retry-related configuration
func (c *Client) validateRetryConfig() []string {
	var errors []string

	if c.retryDefaults.Attempts < 1 {
		errors = append(errors, "retry attempts must be at least 1")
	}
	if c.retryDefaults.Delay < 0 {
		errors = append(errors, "retry delay must be non-negative")
	}
	if c.retryDefaults.MaxDelay > 0 && c.retryDefaults.MaxDelay < c.retryDefaults.Delay {
		errors = append(errors, "retry max delay must be greater than or equal to retry delay")
	}

	return errors
}

func (c *Client) validateAuthConfig() []string {
	var errors []string

	if c.tokens == nil {
		errors = append(errors, "token source cannot be nil")
	}
	if c.sessions != nil && c.sessionHeader == "" {
		errors = append(errors, "session header must be set when a session store is configured")
	}

	return errors
}

// validateMiddlewareConfig validates middleware configuration
func (c *Client) validateMiddlewareConfig() []string {
	var errors []string

	for i, middleware := range c.middleware {
		if middleware == nil {
			errors = append(errors, fmt.Sprintf("middleware[%d] cannot be nil", i))
		}
	}
	for i, interceptor := range c.interceptors {
		if interceptor == nil {
			errors = append(errors, fmt.Sprintf("interceptor[%d] cannot be nil", i))
		}
	}

	return errors
}

// validateExtremeValues validates that configuration values are within reasonable bounds
func (c *Client) validateExtremeValues() []string {
	var errors []string

	if c.retryDefaults.Attempts > 100 {
		errors = append(errors, "retry attempts > 100 may cause excessive resource usage")
	}
	if c.retryDefaults.Delay > 10*time.Minute {
		errors = append(errors, "retry delay > 10 minutes may cause excessive delays")
	}
	if c.timeout > 30*time.Minute {
		errors = append(errors, "timeout > 30 minutes may cause excessive resource usage")
	}
	if c.cacheTTL > 24*time.Hour {
		errors = append(errors, "cacheTTL > 24 hours may serve stale data")
	}

	return errors
}
