package rexel

import (
	"net/http"
	"net/url"
	"time"
)

// RequestConfig holds the per-call settings. Unset fields fall back to the
// client defaults: caching on for GET with the client TTL, no retry.
type RequestConfig struct {
	Params  url.Values
	Header  http.Header
	Timeout time.Duration

	cacheDisabled bool
	cacheTime     time.Duration

	retries            *int
	retryDelay         *time.Duration
	exponentialBackoff *bool
}

// RequestOption configures a single call.
type RequestOption func(*RequestConfig)

func newRequestConfig(opts []RequestOption) *RequestConfig {
	rc := &RequestConfig{
		Params: url.Values{},
		Header: http.Header{},
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// WithParams adds query parameters.
func WithParams(params url.Values) RequestOption {
	return func(rc *RequestConfig) {
		for name, values := range params {
			for _, v := range values {
				rc.Params.Add(name, v)
			}
		}
	}
}

// WithParam sets a single query parameter.
func WithParam(name, value string) RequestOption {
	return func(rc *RequestConfig) {
		rc.Params.Set(name, value)
	}
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(rc *RequestConfig) {
		rc.Header.Set(key, value)
	}
}

// WithoutCache bypasses the cache and in-flight deduplication for a GET.
func WithoutCache() RequestOption {
	return func(rc *RequestConfig) {
		rc.cacheDisabled = true
	}
}

// WithCacheTime overrides the TTL of a cached GET.
func WithCacheTime(d time.Duration) RequestOption {
	return func(rc *RequestConfig) {
		rc.cacheTime = d
	}
}

// WithRetries opts the call into retrying; attempts counts every try.
// Cached GETs ignore it: the cache takes precedence.
func WithRetries(attempts int) RequestOption {
	return func(rc *RequestConfig) {
		rc.retries = &attempts
	}
}

// WithRetryDelay sets the base delay between retries.
func WithRetryDelay(d time.Duration) RequestOption {
	return func(rc *RequestConfig) {
		rc.retryDelay = &d
	}
}

// WithExponentialBackoff toggles doubling of the retry delay.
func WithExponentialBackoff(enabled bool) RequestOption {
	return func(rc *RequestConfig) {
		rc.exponentialBackoff = &enabled
	}
}

// WithRequestTimeout bounds the whole call, waiting included.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(rc *RequestConfig) {
		rc.Timeout = d
	}
}

func (rc *RequestConfig) cacheEnabled() bool {
	return !rc.cacheDisabled
}

func (rc *RequestConfig) ttl(fallback time.Duration) time.Duration {
	if rc.cacheTime > 0 {
		return rc.cacheTime
	}
	return fallback
}

// retryConfig merges the per-call retry settings over defaults. ok is false
// when the call did not opt into retrying.
func (rc *RequestConfig) retryConfig(defaults RetryConfig) (cfg RetryConfig, ok bool) {
	if rc.retries == nil {
		return defaults, false
	}
	cfg = defaults
	cfg.Attempts = *rc.retries
	if rc.retryDelay != nil {
		cfg.Delay = *rc.retryDelay
	}
	if rc.exponentialBackoff != nil {
		cfg.ExponentialBackoff = *rc.exponentialBackoff
	}
	return cfg, true
}
