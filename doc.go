// Package mockflow is a mock HTTP response registry for developing and testing
// a web UI without its backend. It keeps an ordered list of endpoints, each a
// method, a URL pattern and a resolver, and answers intercepted requests from
// the first endpoint that matches.
//
// Three endpoints are built in, in this order:
//   - GET /sampleQuery on any origin returns two SampleRecords
//   - GET http://localhost:1234/ returns {"foo":"a"} when the request carries
//     the cookie v=a and {"bar":"b"} otherwise
//   - GET http://localhost:1234/api/v1/orchestrator/jobs behaves like the root
//
// Service hosts the registry and intercepts in two ways. Client, Transport and
// Listen put it in front of outgoing requests made by code under test; Start
// and Serve run it as an HTTP server a browser can point at. Runtime overrides
// added with Use take priority until ResetHandlers drops them.
//
// # Unhandled requests
//
// Requests no endpoint matches are performed as-is by default. Config's
// OnUnhandledRequest can log a warning first ("warn") or fail them ("error").
//
// # Fixtures
//
// Additional endpoints can be declared in YAML files listed in
// Config.FixtureFiles; they are served ahead of the built-ins.
//
// # Middleware and hooks
//
// Resolvers run through a middleware chain that adds correlation IDs, debug
// logging, OpenTelemetry spans, Prometheus metrics and panic recovery. Custom
// middleware can be added via ServiceDependencies.Middlewares, and
// RequestHooks observe mocked, unhandled and bypassed requests.
//
// # Journal
//
// Every intercepted request is kept as a Call in a bounded in-memory journal
// and can be published through Watermill to the in-process channel sink, an
// HTTP collector, NATS, Kafka or RabbitMQ.
package mockflow
