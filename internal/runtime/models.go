package runtime

import (
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	jsoncodec "github.com/drblury/mockflow/internal/runtime/jsoncodec"
)

const (
	latencySampleSize    = 256
	throughputWindowSize = time.Minute
)

// EndpointStats accumulates what a mock endpoint has served.
type EndpointStats struct {
	mu sync.Mutex `json:"-"`

	Hits              uint64            `json:"hits"`
	Passthroughs      uint64            `json:"passthroughs"`
	Statuses          map[string]uint64 `json:"statuses"`
	TotalResolverTime int64             `json:"total_resolver_time_ns"`
	LastHitAt         time.Time         `json:"last_hit_at"`

	Latency    LatencyMetrics    `json:"latency"`
	Throughput ThroughputMetrics `json:"throughput"`

	latencyWindow    *latencyWindow    `json:"-"`
	throughputWindow *throughputWindow `json:"-"`
}

// EndpointInfo describes a registered endpoint for the admin API.
type EndpointInfo struct {
	Name     string         `json:"name"`
	Method   string         `json:"method"`
	Pattern  string         `json:"pattern"`
	Override bool           `json:"override"`
	Stats    *EndpointStats `json:"stats,omitempty"`
}

type LatencyMetrics struct {
	AverageNs  int64 `json:"average_ns"`
	P50Ns      int64 `json:"p50_ns"`
	P95Ns      int64 `json:"p95_ns"`
	P99Ns      int64 `json:"p99_ns"`
	LastNs     int64 `json:"last_ns"`
	SampleSize int   `json:"sample_size"`
}

type ThroughputMetrics struct {
	CurrentRPS    float64 `json:"current_rps"`
	WindowSeconds float64 `json:"window_seconds"`
	HitsInWindow  uint64  `json:"hits_in_window"`
	TotalHits     uint64  `json:"total_hits"`
}

func newEndpointStats() *EndpointStats {
	return &EndpointStats{
		Statuses:         make(map[string]uint64),
		latencyWindow:    newLatencyWindow(latencySampleSize),
		throughputWindow: newThroughputWindow(throughputWindowSize),
	}
}

func (e *EndpointStats) record(duration time.Duration, status int, passthrough bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	e.Hits++
	if passthrough {
		e.Passthroughs++
	}
	if status > 0 {
		e.Statuses[strconv.Itoa(status)]++
	}
	e.TotalResolverTime += int64(duration)
	e.LastHitAt = now.UTC()

	if e.latencyWindow != nil {
		e.latencyWindow.Add(duration)
		snapshot := e.latencyWindow.Snapshot()
		snapshot.LastNs = int64(duration)
		snapshot.AverageNs = e.TotalResolverTime / int64(e.Hits)
		e.Latency = snapshot
	}

	if e.throughputWindow != nil {
		snapshot := e.throughputWindow.AddAndSnapshot(now)
		e.Throughput.CurrentRPS = snapshot.CurrentRPS
		e.Throughput.WindowSeconds = snapshot.WindowSeconds
		e.Throughput.HitsInWindow = uint64(snapshot.Count)
	}
	e.Throughput.TotalHits = e.Hits
}

// Snapshot returns a copy safe to read without locking.
func (e *EndpointStats) Snapshot() *EndpointStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	statuses := make(map[string]uint64, len(e.Statuses))
	for k, v := range e.Statuses {
		statuses[k] = v
	}
	return &EndpointStats{
		Hits:              e.Hits,
		Passthroughs:      e.Passthroughs,
		Statuses:          statuses,
		TotalResolverTime: e.TotalResolverTime,
		LastHitAt:         e.LastHitAt,
		Latency:           e.Latency,
		Throughput:        e.Throughput,
	}
}

func (e *EndpointStats) MarshalJSON() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	type Alias EndpointStats
	return jsoncodec.Marshal((*Alias)(e))
}

type latencyWindow struct {
	samples []int64
	next    int
	filled  int
	last    int64
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = latencySampleSize
	}
	return &latencyWindow{samples: make([]int64, size)}
}

func (lw *latencyWindow) Add(d time.Duration) {
	if lw == nil || len(lw.samples) == 0 {
		return
	}
	lw.samples[lw.next] = int64(d)
	lw.last = int64(d)
	lw.next = (lw.next + 1) % len(lw.samples)
	if lw.filled < len(lw.samples) {
		lw.filled++
	}
}

func (lw *latencyWindow) Snapshot() LatencyMetrics {
	var metrics LatencyMetrics
	if lw == nil {
		return metrics
	}
	if lw.filled == 0 {
		metrics.LastNs = lw.last
		return metrics
	}
	samples := make([]int64, lw.filled)
	for i := 0; i < lw.filled; i++ {
		idx := lw.next - lw.filled + i
		if idx < 0 {
			idx += len(lw.samples)
		}
		samples[i] = lw.samples[idx]
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	metrics.SampleSize = lw.filled
	metrics.P50Ns = percentile(samples, 0.50)
	metrics.P95Ns = percentile(samples, 0.95)
	metrics.P99Ns = percentile(samples, 0.99)
	var sum int64
	for _, v := range samples {
		sum += v
	}
	metrics.AverageNs = sum / int64(len(samples))
	metrics.LastNs = lw.last
	return metrics
}

func percentile(samples []int64, quantile float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	if quantile <= 0 {
		return samples[0]
	}
	if quantile >= 1 {
		return samples[len(samples)-1]
	}
	pos := quantile * float64(len(samples)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return samples[lower]
	}
	frac := pos - float64(lower)
	return samples[lower] + int64(float64(samples[upper]-samples[lower])*frac)
}

type throughputWindow struct {
	horizon time.Duration
	samples []time.Time
}

type throughputSnapshot struct {
	Count         int
	WindowSeconds float64
	CurrentRPS    float64
}

func newThroughputWindow(horizon time.Duration) *throughputWindow {
	return &throughputWindow{
		horizon: horizon,
		samples: make([]time.Time, 0, 64),
	}
}

func (tw *throughputWindow) AddAndSnapshot(now time.Time) throughputSnapshot {
	if tw == nil {
		return throughputSnapshot{}
	}
	tw.samples = append(tw.samples, now)
	tw.cleanup(now)
	return tw.snapshot(now)
}

func (tw *throughputWindow) cleanup(now time.Time) {
	if tw == nil || len(tw.samples) == 0 {
		return
	}
	cutoff := now.Add(-tw.horizon)
	idx := 0
	for idx < len(tw.samples) && tw.samples[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		copy(tw.samples, tw.samples[idx:])
		tw.samples = tw.samples[:len(tw.samples)-idx]
	}
}

func (tw *throughputWindow) snapshot(now time.Time) throughputSnapshot {
	if tw == nil || len(tw.samples) == 0 {
		return throughputSnapshot{}
	}
	span := now.Sub(tw.samples[0])
	if span <= 0 {
		span = time.Nanosecond
	}
	count := len(tw.samples)
	return throughputSnapshot{
		Count:         count,
		WindowSeconds: span.Seconds(),
		CurrentRPS:    float64(count) / span.Seconds(),
	}
}
