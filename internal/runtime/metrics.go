package runtime

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// resolverMetrics holds the Prometheus collectors of a Service.
type resolverMetrics struct {
	mu sync.Mutex

	requestsTotal   *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	unhandledTotal  *prometheus.CounterVec

	registerer prometheus.Registerer
	registered bool
}

func newResolverCounterVec(subsystem, name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mockflow",
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

func newResolverMetrics(registerer prometheus.Registerer) *resolverMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &resolverMetrics{
		registerer:    registerer,
		requestsTotal: newResolverCounterVec("resolver", "requests_total", "Total number of requests answered by a mock endpoint", []string{"endpoint", "method", "status"}),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mockflow",
				Subsystem: "resolver",
				Name:      "duration_seconds",
				Help:      "Time spent producing mock responses",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"endpoint"},
		),
		unhandledTotal: newResolverCounterVec("", "unhandled_requests_total", "Total number of requests no mock endpoint matched", []string{"method"}),
	}
}

// register adds the collectors to the registerer. Collectors registered by
// an earlier service on the same registerer are reused. Safe to call
// multiple times.
func (m *resolverMetrics) register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error
	if m.requestsTotal, err = registerCollector(m.registerer, m.requestsTotal); err != nil {
		return err
	}
	if m.durationSeconds, err = registerCollector(m.registerer, m.durationSeconds); err != nil {
		return err
	}
	if m.unhandledTotal, err = registerCollector(m.registerer, m.unhandledTotal); err != nil {
		return err
	}

	m.registered = true
	return nil
}

func registerCollector[T prometheus.Collector](registerer prometheus.Registerer, c T) (T, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *resolverMetrics) observe(endpoint, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(status)).Inc()
	m.durationSeconds.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (m *resolverMetrics) unhandled(method string) {
	if m == nil {
		return
	}
	m.unhandledTotal.WithLabelValues(method).Inc()
}

// gatherer returns the registerer as a Gatherer when it is one.
func (m *resolverMetrics) gatherer() (prometheus.Gatherer, bool) {
	if m == nil {
		return nil, false
	}
	g, ok := m.registerer.(prometheus.Gatherer)
	return g, ok
}
