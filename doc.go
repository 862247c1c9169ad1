// Package rexel is the HTTP client layer the Rexel admin application uses
// to talk to its backend. Every feature (products, pickup points, users,
// auth) goes through one shared *Client, which provides:
//
//   - Route rewriting: "public/..." and "secured/..." paths are mapped to
//     the backend's real prefixes
//   - Bearer token injection for secured routes, read fresh on each call
//   - Session header injection for public routes (anonymous carts)
//   - Response caching with expiry for GETs, on by default
//   - Single-flight deduplication of concurrent identical GETs
//   - Opt-in retry with exponential backoff
//   - One response shape ({data, message, status, timestamp}) and one
//     error type (*APIError) for every call
//   - Prometheus metrics and zerolog logging
//
// Typical usage:
//
//	client := rexel.New(
//	    rexel.WithBaseURL("https://api.example.com"),
//	    rexel.WithTokenSource(tokens),
//	    rexel.WithLogger(log.Logger),
//	)
//	resp, err := client.Get(ctx, "secured/products", rexel.WithParam("q", "cable"))
//	products, err := rexel.DecodeData[[]Product](resp)
//
// A secured call without a token fails with UNAUTHENTICATED before any
// network I/O. A 401 from the backend is logged and returned; the client
// never refreshes tokens or redirects.
package rexel
