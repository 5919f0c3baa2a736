// Package middleware provides the HTTP gatekeeper chain for the gateway.
//
// Middleware stack includes:
//   - SecurityHeaders: fixed security-header policy on every response
//   - CORS: same-origin negotiation and preflight handling for API paths
//   - RateLimit: per-client sliding-window admission on API paths
//   - Overload: process-wide token bucket backstop
//   - RequestID: per-request correlation IDs
//
// Classification per request:
//  1. OPTIONS on an API path is answered with an empty 204 preflight
//  2. API paths outside the auth sub-path are keyed by client identity
//     and path, then admitted or rejected with a structured 429
//  3. Everything else passes straight through to the downstream handler
//
// Every response, short-circuited or proxied, carries the security-header
// set; API responses additionally carry X-RateLimit-Limit, -Remaining and
// -Reset.
//
// Example Usage:
//
//	router.Use(middleware.SecurityHeaders())
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig("/api")))
//	router.Use(middleware.RateLimit(cfg, store, logger, metrics))
package middleware
