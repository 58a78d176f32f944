package runtime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jsoncodec "github.com/drblury/mockflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
)

type errorBody struct {
	Error    string `json:"error"`
	Endpoint string `json:"endpoint,omitempty"`
	Method   string `json:"method,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ServeHTTP serves the mock endpoints, the admin API and the metrics
// endpoint over a real listener.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Service) newRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	if s.Conf.AdminEnabled {
		r.Route(s.Conf.AdminPathPrefix, func(r chi.Router) {
			r.Get("/handlers", s.handleGetHandlers)
			r.Get("/calls", s.handleGetCalls)
			r.Delete("/calls", s.handleClearCalls)
			r.Post("/reset", s.handleReset)
		})
	}

	if s.Conf.MetricsEnabled {
		var metricsHandler http.Handler
		if g, ok := s.metrics.gatherer(); ok {
			metricsHandler = promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		} else {
			metricsHandler = promhttp.Handler()
		}
		r.Method(http.MethodGet, s.Conf.MetricsPath, metricsHandler)
	}

	mocks := http.HandlerFunc(s.serveMock)
	r.Handle("/", mocks)
	r.Handle("/*", mocks)
	r.NotFound(mocks)
	r.MethodNotAllowed(mocks)
	return r
}

func (s *Service) serveMock(w http.ResponseWriter, r *http.Request) {
	i, err := s.intercept(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	if i.matched && !i.passthrough() {
		status := i.resp.StatusCode()
		if err := i.resp.Write(w); err != nil {
			s.Logger.Error("Failed to write mock response", err, loggingpkg.LogFields{"endpoint": i.endpoint.Name})
			s.finish(i, status, err)
			return
		}
		s.finish(i, status, nil)
		return
	}

	if !i.matched {
		if err := s.unhandled(i); err != nil {
			writeJSON(w, http.StatusNotImplemented, errorBody{Error: err.Error(), Method: i.req.Method, URL: i.req.URL.String()})
			s.finish(i, http.StatusNotImplemented, err)
			return
		}
	}

	if s.proxy == nil {
		status := http.StatusNotFound
		body := errorBody{Error: "no mock endpoint matches the request", Method: i.req.Method, URL: i.req.URL.String()}
		if i.matched {
			status = http.StatusBadGateway
			body.Error = "passthrough requires an upstream URL"
			body.Endpoint = i.endpoint.Name
		}
		writeJSON(w, status, body)
		s.finish(i, status, nil)
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.proxy.ServeHTTP(rec, r)
	s.finish(i, rec.status, nil)
}

// statusRecorder captures the status code written by the reverse proxy.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (s *Service) handleGetHandlers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.EndpointInfos())
}

func (s *Service) handleGetCalls(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Calls())
}

func (s *Service) handleClearCalls(w http.ResponseWriter, r *http.Request) {
	s.ClearCalls()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Service) handleReset(w http.ResponseWriter, r *http.Request) {
	s.ResetHandlers()
	s.Logger.Info("Runtime overrides reset", nil)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsoncodec.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// corsMiddleware sets CORS headers for allowed origins and answers
// preflight requests.
func (s *Service) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := s.getAllowedCORSOrigin(origin)
		if origin == "" || allowed == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", allowed)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+HeaderCorrelationID)
		w.Header().Set("Access-Control-Expose-Headers", HeaderCorrelationID)
		if allowed != "*" {
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// getAllowedCORSOrigin checks if the request origin is allowed and returns the appropriate
// Access-Control-Allow-Origin value.
func (s *Service) getAllowedCORSOrigin(requestOrigin string) string {
	if s.Conf == nil {
		return ""
	}
	for _, allowed := range s.Conf.CORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}

// Start serves on the configured listen address until ctx is cancelled,
// then shuts down gracefully within the configured timeout.
func (s *Service) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Conf.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.Conf.ListenAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Start but uses an existing listener, which it closes.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting mock server", loggingpkg.LogFields{"address": ln.Addr().String()})
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Conf.ShutdownTimeout)
	defer cancel()
	s.Logger.Info("Stopping mock server", loggingpkg.LogFields{"address": ln.Addr().String()})
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown mock server: %w", err)
	}
	return nil
}
