package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	idspkg "github.com/drblury/mockflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
	"github.com/drblury/mockflow/internal/runtime/mock"
)

// HeaderCorrelationID carries the correlation identifier on requests and
// mocked responses.
const HeaderCorrelationID = "X-Correlation-ID"

// ResolveFunc produces the response of a matched endpoint.
type ResolveFunc func(req *mock.Request, endpoint *mock.Endpoint) mock.Response

// ResolveMiddleware decorates a ResolveFunc.
type ResolveMiddleware func(next ResolveFunc) ResolveFunc

// MiddlewareBuilder constructs a resolver middleware using the provided service instance.
type MiddlewareBuilder func(*Service) (ResolveMiddleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a Service.
type MiddlewareRegistration struct {
	Name       string
	Middleware ResolveMiddleware
	Builder    MiddlewareBuilder
}

// DefaultMiddlewares returns the standard middleware chain used by the Service constructor.
// The first entry runs outermost.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		CorrelationIDMiddleware(),
		LogRequestsMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
		RecovererMiddleware(),
	}
}

type correlationIDKey struct{}

// CorrelationIDFromContext returns the correlation ID stored by the
// correlation middleware.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok && id != ""
}

// CorrelationIDMiddleware reuses the incoming X-Correlation-ID header or mints
// a ULID, and echoes it on the mocked response.
func CorrelationIDMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "correlation_id",
		Middleware: correlationIDMiddleware,
	}
}

func correlationIDMiddleware(next ResolveFunc) ResolveFunc {
	return func(req *mock.Request, endpoint *mock.Endpoint) mock.Response {
		id := req.Header.Get(HeaderCorrelationID)
		if id == "" {
			id = idspkg.CreateULID()
		}
		req = req.WithContext(context.WithValue(req.Context(), correlationIDKey{}, id))

		resp := next(req, endpoint)
		resp.Header = resp.Header.Clone()
		if resp.Header == nil {
			resp.Header = make(http.Header)
		}
		resp.Header.Set(HeaderCorrelationID, id)
		return resp
	}
}

// LogRequestsMiddleware logs every resolved request at debug level.
func LogRequestsMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_requests",
		Builder: func(s *Service) (ResolveMiddleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				return nil, errors.New("log requests middleware requires a logger")
			}
			return logRequestsMiddleware(l), nil
		},
	}
}

func logRequestsMiddleware(logger loggingpkg.ServiceLogger) ResolveMiddleware {
	return func(next ResolveFunc) ResolveFunc {
		return func(req *mock.Request, endpoint *mock.Endpoint) mock.Response {
			start := time.Now()
			resp := next(req, endpoint)

			fields := loggingpkg.LogFields{
				"endpoint":    endpoint.Name,
				"method":      req.Method,
				"url":         req.URL.String(),
				"status":      resp.StatusCode(),
				"passthrough": resp.IsPassthrough(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if id, ok := CorrelationIDFromContext(req.Context()); ok {
				fields["correlation_id"] = id
			}
			logger.Debug("Resolved mock request", fields)
			return resp
		}
	}
}

// TracerMiddleware wraps resolver execution in an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name:       "tracer",
		Middleware: tracerMiddleware,
	}
}

func tracerMiddleware(next ResolveFunc) ResolveFunc {
	return func(req *mock.Request, endpoint *mock.Endpoint) mock.Response {
		ctx, span := otel.Tracer("mockflow").Start(req.Context(), "mock "+endpoint.Name)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
			attribute.String("mockflow.endpoint", endpoint.Name),
			attribute.String("mockflow.pattern", endpoint.Pattern.String()),
		)

		resp := next(req.WithContext(ctx), endpoint)
		span.SetAttributes(
			attribute.Int("http.response.status_code", resp.StatusCode()),
			attribute.Bool("mockflow.passthrough", resp.IsPassthrough()),
		)
		if resp.StatusCode() >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(resp.StatusCode()))
		}
		return resp
	}
}

// MetricsMiddleware records Prometheus request counts and resolver latency.
// It is skipped when the service has no metrics registerer.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (ResolveMiddleware, error) {
			if s.metrics == nil {
				return nil, nil
			}
			return s.metricsMiddleware(), nil
		},
	}
}

func (s *Service) metricsMiddleware() ResolveMiddleware {
	return func(next ResolveFunc) ResolveFunc {
		return func(req *mock.Request, endpoint *mock.Endpoint) mock.Response {
			start := time.Now()
			resp := next(req, endpoint)
			s.metrics.observe(endpoint.Name, req.Method, resp.StatusCode(), time.Since(start))
			return resp
		}
	}
}

// RecovererMiddleware turns resolver panics into 500 responses.
func RecovererMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "recoverer",
		Builder: func(s *Service) (ResolveMiddleware, error) {
			return s.recovererMiddleware(), nil
		},
	}
}

func (s *Service) recovererMiddleware() ResolveMiddleware {
	return func(next ResolveFunc) ResolveFunc {
		return func(req *mock.Request, endpoint *mock.Endpoint) (resp mock.Response) {
			defer func() {
				if r := recover(); r != nil {
					err := fmt.Errorf("resolver panic: %v", r)
					s.Logger.Error("Mock resolver panicked", err, loggingpkg.LogFields{
						"endpoint": endpoint.Name,
						"method":   req.Method,
						"url":      req.URL.String(),
					})
					resp = mock.JSON(http.StatusInternalServerError, errorBody{
						Error:    err.Error(),
						Endpoint: endpoint.Name,
					})
				}
			}()
			return next(req, endpoint)
		}
	}
}

// RegisterMiddleware appends the supplied middleware to the resolver chain.
// Middlewares registered later run closer to the resolver.
func (s *Service) RegisterMiddleware(cfg MiddlewareRegistration) error {
	var mw ResolveMiddleware
	switch {
	case cfg.Middleware != nil:
		mw = cfg.Middleware
	case cfg.Builder != nil:
		var err error
		mw, err = cfg.Builder(s)
		if err != nil {
			return err
		}
	default:
		return errors.New("middleware registration requires Middleware or Builder")
	}

	if mw == nil {
		return nil
	}

	s.chainMu.Lock()
	defer s.chainMu.Unlock()
	s.middlewares = append(s.middlewares, mw)
	s.chain = buildChain(s.middlewares)
	return nil
}

func (s *Service) registerConfiguredMiddlewares(deps ServiceDependencies) error {
	var defaults []MiddlewareRegistration
	if !deps.DisableDefaultMiddlewares {
		defaults = DefaultMiddlewares()
	}
	registrations := make([]MiddlewareRegistration, 0, len(defaults)+len(deps.Middlewares))
	registrations = append(registrations, defaults...)
	registrations = append(registrations, deps.Middlewares...)

	for _, reg := range registrations {
		if err := s.RegisterMiddleware(reg); err != nil {
			name := reg.Name
			if name == "" {
				name = "anonymous_middleware"
			}
			return fmt.Errorf("failed to register middleware %s: %w", name, err)
		}
	}
	return nil
}

func buildChain(middlewares []ResolveMiddleware) ResolveFunc {
	chain := ResolveFunc(func(req *mock.Request, endpoint *mock.Endpoint) mock.Response {
		return endpoint.Resolver(req)
	})
	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i](chain)
	}
	return chain
}

func (s *Service) resolveChain() ResolveFunc {
	s.chainMu.RLock()
	defer s.chainMu.RUnlock()
	if s.chain == nil {
		return buildChain(nil)
	}
	return s.chain
}
