package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"reflect"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"

	configpkg "github.com/drblury/mockflow/internal/runtime/config"
	errspkg "github.com/drblury/mockflow/internal/runtime/errors"
	"github.com/drblury/mockflow/internal/runtime/fixtures"
	"github.com/drblury/mockflow/internal/runtime/handlers"
	idspkg "github.com/drblury/mockflow/internal/runtime/ids"
	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
	"github.com/drblury/mockflow/internal/runtime/mock"
	"github.com/drblury/mockflow/transport"
	_ "github.com/drblury/mockflow/transport/transports"
)

// ServiceDependencies holds the optional collaborators that the Service can use.
// Leave fields nil to get the defaults.
type ServiceDependencies struct {
	// Endpoints replaces the built-in endpoints and fixture files when non-nil.
	Endpoints                 []mock.Endpoint
	Middlewares               []MiddlewareRegistration // Appended after the default middleware chain.
	DisableDefaultMiddlewares bool                     // Skips registering the default middleware chain when true.
	Hooks                     RequestHooks
	// JournalPublisher overrides the sink selected by the configuration. When
	// it also implements message.Subscriber, Subscribe reads from it.
	JournalPublisher  message.Publisher
	TransportRegistry *transport.Registry
	// Next performs bypassed requests. Defaults to http.DefaultTransport as
	// it was when the service was created.
	Next http.RoundTripper
	// Registerer receives the Prometheus collectors. Defaults to
	// prometheus.DefaultRegisterer when metrics are enabled.
	Registerer prometheus.Registerer
}

// Service is the interception layer: it owns the ordered endpoint list and
// answers requests from it, either as an http.RoundTripper or as an
// http.Handler.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	base  *url.URL
	next  http.RoundTripper
	proxy *httputil.ReverseProxy
	hooks RequestHooks

	mu        sync.RWMutex
	initial   *mock.Registry
	registry  *mock.Registry
	overrides int

	chainMu     sync.RWMutex
	middlewares []ResolveMiddleware
	chain       ResolveFunc

	statsMu sync.Mutex
	stats   map[string]*EndpointStats

	journal    *journal
	publisher  message.Publisher
	subscriber message.Subscriber
	metrics    *resolverMetrics

	handler http.Handler

	listenMu         sync.Mutex
	listening        bool
	defaultTransport http.RoundTripper
	closeOnce        sync.Once
	closeErr         error
}

// NewService constructs a Service for the supplied configuration. It panics
// when the configuration or a dependency is invalid; use TryNewService to
// handle the error instead.
func NewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) *Service {
	s, err := TryNewService(conf, log, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService constructs a Service for the supplied configuration.
func TryNewService(conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		return nil, errspkg.ErrLoggerRequired
	}
	resolved := conf.WithDefaults()
	if err := resolved.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		Conf:    &resolved,
		Logger:  log,
		hooks:   deps.Hooks,
		next:    deps.Next,
		stats:   make(map[string]*EndpointStats),
		journal: newJournal(resolved.JournalCapacity),
	}
	if s.next == nil {
		s.next = http.DefaultTransport
	}

	if resolved.BaseURL != "" {
		base, err := url.Parse(resolved.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base URL: %w", err)
		}
		s.base = base
	}

	endpoints := deps.Endpoints
	if endpoints == nil {
		loaded, err := fixtures.LoadFiles(s.base, resolved.FixtureFiles...)
		if err != nil {
			return nil, err
		}
		endpoints = append(loaded, handlers.Default()...)
	}
	s.initial = mock.NewRegistry(endpoints...).Anchor(s.base)
	s.registry = s.initial

	if resolved.UpstreamURL != "" {
		upstream, err := url.Parse(resolved.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("parse upstream URL: %w", err)
		}
		s.proxy = httputil.NewSingleHostReverseProxy(upstream)
		s.proxy.Transport = s.next
	}

	if err := s.setupJournal(deps); err != nil {
		return nil, err
	}

	if resolved.MetricsEnabled || deps.Registerer != nil {
		s.metrics = newResolverMetrics(deps.Registerer)
		if err := s.metrics.register(); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	if err := s.registerConfiguredMiddlewares(deps); err != nil {
		return nil, err
	}
	s.handler = s.newRouter()

	log.Info("Creating mock service", loggingpkg.LogFields{
		"endpoints":    s.initial.Len(),
		"journal_sink": resolved.JournalSink,
		"config":       resolved.String(),
	})
	return s, nil
}

func (s *Service) setupJournal(deps ServiceDependencies) error {
	if deps.JournalPublisher != nil {
		s.publisher = deps.JournalPublisher
		if sub, ok := deps.JournalPublisher.(message.Subscriber); ok {
			s.subscriber = sub
		}
		return nil
	}
	if s.Conf.JournalSink == configpkg.JournalSinkNone {
		return nil
	}

	registry := deps.TransportRegistry
	if registry == nil {
		registry = transport.DefaultRegistry
	}
	tr, err := registry.Build(context.Background(), s.Conf, loggingpkg.NewWatermillAdapter(s.Logger))
	if err != nil {
		return fmt.Errorf("build journal sink: %w", err)
	}
	s.publisher = tr.Publisher
	s.subscriber = tr.Subscriber
	return nil
}

// Use prepends runtime overrides. They take priority over every endpoint
// registered before them until ResetHandlers is called.
func (s *Service) Use(endpoints ...mock.Endpoint) {
	if len(endpoints) == 0 {
		return
	}
	anchored := mock.NewRegistry(endpoints...).Anchor(s.base).Handlers()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = s.registry.Prepend(anchored...)
	s.overrides += len(anchored)
}

// ResetHandlers drops every runtime override. When endpoints are given they
// replace the initial list as well.
func (s *Service) ResetHandlers(endpoints ...mock.Endpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(endpoints) > 0 {
		s.initial = mock.NewRegistry(endpoints...).Anchor(s.base)
	}
	s.registry = s.initial
	s.overrides = 0
}

// ListHandlers returns the effective endpoints in match order.
func (s *Service) ListHandlers() []mock.Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry.Handlers()
}

// EndpointInfos describes the effective endpoints together with their stats.
func (s *Service) EndpointInfos() []EndpointInfo {
	s.mu.RLock()
	endpoints := s.registry.Handlers()
	overrides := s.overrides
	s.mu.RUnlock()

	infos := make([]EndpointInfo, len(endpoints))
	for i, e := range endpoints {
		infos[i] = EndpointInfo{
			Name:     e.Name,
			Method:   e.Method,
			Pattern:  e.Pattern.String(),
			Override: i < overrides,
			Stats:    s.Stats(e.Name),
		}
	}
	return infos
}

// Stats returns a snapshot of the named endpoint's stats, or nil when it has
// not been hit.
func (s *Service) Stats(endpoint string) *EndpointStats {
	s.statsMu.Lock()
	stats, ok := s.stats[endpoint]
	s.statsMu.Unlock()
	if !ok {
		return nil
	}
	return stats.Snapshot()
}

func (s *Service) endpointStats(name string) *EndpointStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	stats, ok := s.stats[name]
	if !ok {
		stats = newEndpointStats()
		s.stats[name] = stats
	}
	return stats
}

// Resolve finds the first endpoint matching req and runs its resolver
// through the middleware chain. It reports false when nothing matches.
func (s *Service) Resolve(req *mock.Request) (mock.Response, *mock.Endpoint, bool) {
	s.mu.RLock()
	registry := s.registry
	s.mu.RUnlock()

	endpoint, params, ok := registry.Match(req.Method, req.URL)
	if !ok {
		return mock.Response{}, nil, false
	}
	req.Params = params
	resp := s.resolveChain()(req, &endpoint)
	return resp, &endpoint, true
}

// interception is the outcome of consulting the registry for one request.
type interception struct {
	req      *mock.Request
	resp     mock.Response
	endpoint *mock.Endpoint
	matched  bool
	start    time.Time
}

func (i interception) passthrough() bool {
	return i.matched && i.resp.IsPassthrough()
}

func (i interception) hookContext() RequestContext {
	rc := RequestContext{
		Method:    i.req.Method,
		URL:       i.req.URL.String(),
		Context:   i.req.Context(),
		StartedAt: i.start,
		Duration:  time.Since(i.start),
	}
	if i.endpoint != nil {
		rc.Endpoint = i.endpoint.Name
	}
	rc.CorrelationID = i.resp.Header.Get(HeaderCorrelationID)
	return rc
}

func (s *Service) intercept(r *http.Request) (interception, error) {
	start := time.Now()
	req, err := mock.NewRequest(r)
	if err != nil {
		return interception{}, err
	}
	s.hooks.requestStart(RequestContext{
		Method:    req.Method,
		URL:       req.URL.String(),
		Context:   req.Context(),
		StartedAt: start,
	})

	resp, endpoint, ok := s.Resolve(req)
	return interception{req: req, resp: resp, endpoint: endpoint, matched: ok, start: start}, nil
}

// unhandled applies the unhandled request policy. A non-nil error means the
// request must not be performed.
func (s *Service) unhandled(i interception) error {
	s.metrics.unhandled(i.req.Method)
	s.hooks.unhandled(i.hookContext())

	fields := loggingpkg.LogFields{
		"method": i.req.Method,
		"url":    i.req.URL.String(),
		"policy": s.Conf.OnUnhandledRequest,
	}
	switch s.Conf.OnUnhandledRequest {
	case configpkg.OnUnhandledError:
		err := fmt.Errorf("%w: %s %s", errspkg.ErrUnhandledRequest, i.req.Method, i.req.URL)
		s.Logger.Error("Unhandled request", err, fields)
		return err
	case configpkg.OnUnhandledWarn:
		s.Logger.Info("Warning: request has no matching mock endpoint, performing it as-is", fields)
	default:
		s.Logger.Debug("Bypassing unhandled request", fields)
	}
	return nil
}

// finish records the outcome of an interception in the stats and the journal.
func (s *Service) finish(i interception, status int, err error) {
	duration := time.Since(i.start)
	call := Call{
		ID:            idspkg.CreateULIDAt(i.start),
		CorrelationID: i.resp.Header.Get(HeaderCorrelationID),
		Method:        i.req.Method,
		URL:           i.req.URL.String(),
		Status:        status,
		Matched:       i.matched,
		Passthrough:   i.passthrough(),
		DurationNs:    int64(duration),
		At:            i.start.UTC(),
	}
	if err != nil {
		call.Error = err.Error()
	}
	if i.endpoint != nil {
		call.Endpoint = i.endpoint.Name
		s.endpointStats(i.endpoint.Name).record(duration, status, call.Passthrough)
	}
	s.recordCall(call)

	rc := i.hookContext()
	rc.Status = status
	rc.Duration = duration
	if i.matched && !call.Passthrough {
		s.hooks.mocked(rc)
		return
	}
	if i.matched || s.Conf.OnUnhandledRequest != configpkg.OnUnhandledError {
		s.hooks.bypass(rc, err)
	}
}

// Close uninstalls the interceptor if Listen installed it and closes the
// journal sink. It is safe to call more than once.
func (s *Service) Close() error {
	s.listenMu.Lock()
	if s.listening {
		http.DefaultTransport = s.defaultTransport
		s.listening = false
	}
	s.listenMu.Unlock()

	s.closeOnce.Do(func() {
		var errs []error
		if s.publisher != nil {
			errs = append(errs, s.publisher.Close())
		}
		if s.subscriber != nil && !sameSink(s.subscriber, s.publisher) {
			errs = append(errs, s.subscriber.Close())
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// sameSink reports whether the subscriber is the publisher itself, as with
// the channel sink, so it is closed only once.
func sameSink(sub message.Subscriber, pub message.Publisher) bool {
	if pub == nil || !reflect.TypeOf(sub).Comparable() {
		return false
	}
	return any(sub) == any(pub)
}
