/*
Package runtime provides the interception layer of mockflow.

# Architecture Overview

A Service owns an ordered list of mock endpoints. Every intercepted request is
matched against that list, first match wins, and the endpoint's resolver runs
through a middleware chain to produce the response. Requests nothing matches
follow the configured unhandled request policy.

The same Service intercepts in two ways:
  - as an http.RoundTripper (Transport, Client, Listen), for code under test
    that makes outgoing requests
  - as an http.Handler (ServeHTTP, Start, Serve), for a browser or another
    process pointed at the mock server

# Package Structure

## Core Service (service.go, interceptor.go, server.go)

The Service wires together:
  - The endpoint registry with runtime overrides (Use, ResetHandlers)
  - The resolver middleware chain
  - The round tripper and the chi router with the admin API
  - The call journal and its sink
  - Prometheus metrics

## Middleware (middleware.go)

Resolver middlewares wrap every matched endpoint:
  - CorrelationID: reuses or mints X-Correlation-ID and echoes it
  - LogRequests: debug logging of resolved requests
  - Tracer: OpenTelemetry spans around resolvers
  - Metrics: Prometheus request counts and latency
  - Recoverer: turns resolver panics into 500 responses

## Hooks (hooks.go)

RequestHooks observe the request lifecycle: start, mocked, unhandled and
bypassed requests.

## Journal (journal.go)

Each intercepted request becomes a Call kept in a bounded in-memory journal
and, when a sink is configured, published through Watermill.

## Stats (models.go)

Per-endpoint hit counts, status histogram, latency percentiles and throughput.

# Sub-packages

  - config/: Service configuration with validation
  - errors/: Sentinel errors and error types
  - fixtures/: YAML endpoint definitions
  - handlers/: Built-in endpoints and resolver helpers
  - ids/: ULID generation for call IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - mock/: Endpoint, pattern, request and response types

# Usage Example

	svc := mockflow.NewService(&mockflow.Config{}, logger, mockflow.ServiceDependencies{})
	defer svc.Close()

	client := svc.Client()
	resp, err := client.Get("http://localhost:1234/sampleQuery")
*/
package runtime
