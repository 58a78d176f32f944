package runtime

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	configpkg "github.com/drblury/mockflow/internal/runtime/config"
	loggingpkg "github.com/drblury/mockflow/internal/runtime/logging"
	"github.com/drblury/mockflow/internal/runtime/mock"
)

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

// newTestService builds a service with an isolated Prometheus registry so
// tests never touch the default registerer.
func newTestService(t *testing.T, conf configpkg.Config, deps ServiceDependencies) *Service {
	t.Helper()
	if deps.Registerer == nil {
		deps.Registerer = prometheus.NewRegistry()
	}
	svc, err := TryNewService(&conf, newTestLogger(), deps)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

// roundTripFunc adapts a function into an http.RoundTripper.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// recordingTransport answers every request with 200 "upstream" and counts them.
type recordingTransport struct {
	mu   sync.Mutex
	urls []string
}

func (rt *recordingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	rt.mu.Lock()
	rt.urls = append(rt.urls, r.URL.String())
	rt.mu.Unlock()
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Header:     http.Header{"Content-Type": []string{"text/plain"}},
		Body:       io.NopCloser(strings.NewReader("upstream")),
		Request:    r,
	}, nil
}

func (rt *recordingTransport) URLs() []string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return append([]string(nil), rt.urls...)
}

type testPublisher struct {
	mu        sync.Mutex
	published []*message.Message
	topics    []string
	err       error
	closed    bool
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.published = append(p.published, messages...)
	return nil
}

func (p *testPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *testPublisher) Messages() []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.published...)
}

// capturingLogger records the messages logged at each level.
type capturingLogger struct {
	mu      sync.Mutex
	entries []capturedEntry
}

type capturedEntry struct {
	level  string
	msg    string
	err    error
	fields loggingpkg.LogFields
}

func (l *capturingLogger) record(level, msg string, err error, fields loggingpkg.LogFields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, capturedEntry{level: level, msg: msg, err: err, fields: fields})
}

func (l *capturingLogger) With(loggingpkg.LogFields) loggingpkg.ServiceLogger { return l }
func (l *capturingLogger) Debug(msg string, fields loggingpkg.LogFields) { l.record("debug", msg, nil, fields) }
func (l *capturingLogger) Info(msg string, fields loggingpkg.LogFields) { l.record("info", msg, nil, fields) }
func (l *capturingLogger) Trace(msg string, fields loggingpkg.LogFields) { l.record("trace", msg, nil, fields) }
func (l *capturingLogger) Error(msg string, err error, fields loggingpkg.LogFields) {
	l.record("error", msg, err, fields)
}

func (l *capturingLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func staticEndpoint(name, method, pattern string, status int, body any) mock.Endpoint {
	return mock.MustEndpoint(name, method, pattern, func(*mock.Request) mock.Response {
		return mock.JSON(status, body)
	})
}
