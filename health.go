package rexel

import (
	"context"
	"net/http"
	"strings"
)

// HealthCheck reports whether the backend answers its health endpoint. It
// bypasses the cache, uses a short timeout and never returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	_, err := c.Get(ctx, c.healthPath, WithoutCache(), WithRequestTimeout(c.healthTimeout))
	if err != nil {
		c.logger.Debug().Err(err).Str("path", c.healthPath).Msg("health check failed")
		return false
	}
	return true
}

// IsAuthenticated reports whether a token is available and, when it is a
// JWT with an exp claim, not yet expired. Errors count as false.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	if c.tokens == nil {
		return false
	}
	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		return false
	}
	return !tokenExpired(token, c.now())
}

// SetAuthToken stores token in the token source. Cached secured responses
// belong to the previous identity and are dropped.
func (c *Client) SetAuthToken(ctx context.Context, token string) error {
	store, err := c.tokenStore()
	if err != nil {
		return err
	}
	if err := store.SetToken(ctx, token); err != nil {
		return c.fail(nil, "", "", RouteSecured, nil, nil, err)
	}
	c.dropSecured()
	return nil
}

// RemoveAuthToken clears the token source and the cached secured responses.
func (c *Client) RemoveAuthToken(ctx context.Context) error {
	store, err := c.tokenStore()
	if err != nil {
		return err
	}
	if err := store.RemoveToken(ctx); err != nil {
		return c.fail(nil, "", "", RouteSecured, nil, nil, err)
	}
	c.dropSecured()
	return nil
}

func (c *Client) tokenStore() (TokenStore, error) {
	store, ok := c.tokens.(TokenStore)
	if !ok {
		return nil, &APIError{
			Message: "token source is read-only",
			Code:    CodeRequest,
			Status:  http.StatusInternalServerError,
		}
	}
	return store, nil
}

func (c *Client) dropSecured() {
	if n := c.InvalidateCache(securedMarker); n > 0 {
		c.logger.Debug().Int("entries", n).Msg("dropped cached secured responses")
	}
}

// ClearCache drops every cached response.
func (c *Client) ClearCache() {
	c.cache.Clear()
	c.metrics.RecordCacheSize(0)
}

// InvalidateCache drops cached responses whose path starts with prefix.
// prefix is a logical path such as "secured/products" and is rewritten
// like a request path. It returns the number of entries dropped.
func (c *Client) InvalidateCache(prefix string) int {
	_, rewritten := c.routes.Rewrite(prefix)
	target, err := c.resolve(rewritten, nil)
	if err != nil {
		return 0
	}
	key := CacheKey(target, nil)
	if !strings.HasSuffix(prefix, "/") {
		key = strings.TrimSuffix(key, "/")
	}

	n := c.cache.DeletePrefix(key)
	c.metrics.RecordCacheSize(c.cache.Len())
	return n
}

// CacheSize returns the number of live cached responses.
func (c *Client) CacheSize() int {
	return c.cache.Len()
}

// InFlight returns the number of distinct GETs currently being fetched.
func (c *Client) InFlight() int {
	return c.inflight.Len()
}
