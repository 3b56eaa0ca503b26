// Package metrics provides minimal Prometheus-text counters, gauges and
// histograms plus an HTTP middleware, without pulling in a client library.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing value.
type Counter struct {
	v    uint64
	name string
	help string
}

func NewCounter(name, help string) *Counter { return &Counter{name: name, help: help} }

func (c *Counter) Inc()          { atomic.AddUint64(&c.v, 1) }
func (c *Counter) Add(n uint64)  { atomic.AddUint64(&c.v, n) }
func (c *Counter) Value() uint64 { return atomic.LoadUint64(&c.v) }

func (c *Counter) expose(w http.ResponseWriter) {
	if c.help != "" {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
	}
	fmt.Fprintf(w, "# TYPE %s counter\n%s %d\n", c.name, c.name, c.Value())
}

// Gauge is a settable value.
type Gauge struct {
	v    uint64
	name string
	help string
}

func NewGauge(name, help string) *Gauge { return &Gauge{name: name, help: help} }

func (g *Gauge) Set(n uint64)  { atomic.StoreUint64(&g.v, n) }
func (g *Gauge) Value() uint64 { return atomic.LoadUint64(&g.v) }

func (g *Gauge) expose(w http.ResponseWriter) {
	if g.help != "" {
		fmt.Fprintf(w, "# HELP %s %s\n", g.name, g.help)
	}
	fmt.Fprintf(w, "# TYPE %s gauge\n%s %d\n", g.name, g.name, g.Value())
}

// Histogram is a thread-safe cumulative bucket histogram.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	counts  []uint64
	sum     float64
	cnt     uint64
	mu      sync.Mutex
}

func defaultBuckets() []float64 {
	return []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}
}

func NewHistogram(name, help string, buckets []float64) *Histogram {
	if len(buckets) == 0 {
		buckets = defaultBuckets()
	}
	cp := make([]float64, len(buckets))
	copy(cp, buckets)
	sort.Float64s(cp)
	return &Histogram{name: name, help: help, buckets: cp, counts: make([]uint64, len(cp))}
}

func (h *Histogram) Observe(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	i := sort.SearchFloat64s(h.buckets, v)
	if i < len(h.counts) {
		h.counts[i]++
	}
	h.cnt++
	h.sum += v
}

func (h *Histogram) expose(w http.ResponseWriter) {
	if h.help != "" {
		fmt.Fprintf(w, "# HELP %s %s\n", h.name, h.help)
	}
	fmt.Fprintf(w, "# TYPE %s histogram\n", h.name)
	h.mu.Lock()
	defer h.mu.Unlock()
	var cum uint64
	for i, b := range h.buckets {
		cum += h.counts[i]
		fmt.Fprintf(w, "%s_bucket{le=\"%g\"} %d\n", h.name, b, cum)
	}
	fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", h.name, h.cnt)
	fmt.Fprintf(w, "%s_sum %g\n", h.name, h.sum)
	fmt.Fprintf(w, "%s_count %d\n", h.name, h.cnt)
}

// LabeledCounter is a counter split by a fixed label set.
type LabeledCounter struct {
	name       string
	help       string
	labelOrder []string
	mu         sync.Mutex
	m          map[string]uint64
}

const labelSep = "\x1f"

func NewLabeledCounter(name, help string, labelOrder []string) *LabeledCounter {
	return &LabeledCounter{name: name, help: help, labelOrder: labelOrder, m: map[string]uint64{}}
}

func (c *LabeledCounter) Inc(labels map[string]string) {
	vals := make([]string, len(c.labelOrder))
	for i, k := range c.labelOrder {
		vals[i] = labels[k]
	}
	key := strings.Join(vals, labelSep)
	c.mu.Lock()
	c.m[key]++
	c.mu.Unlock()
}

func (c *LabeledCounter) expose(w http.ResponseWriter) {
	if c.help != "" {
		fmt.Fprintf(w, "# HELP %s %s\n", c.name, c.help)
	}
	fmt.Fprintf(w, "# TYPE %s counter\n", c.name)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, v := range c.m {
		vals := strings.Split(key, labelSep)
		fmt.Fprintf(w, "%s{", c.name)
		for i, name := range c.labelOrder {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			val := ""
			if i < len(vals) {
				val = vals[i]
			}
			fmt.Fprintf(w, "%s=%q", name, val)
		}
		fmt.Fprintf(w, "} %d\n", v)
	}
}

type exposer interface{ expose(http.ResponseWriter) }

// Registry collects metrics and serves them in Prometheus text format.
type Registry struct {
	mu      sync.Mutex
	entries []exposer
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) Register(c *Counter)               { r.add(c) }
func (r *Registry) RegisterGauge(g *Gauge)            { r.add(g) }
func (r *Registry) RegisterHistogram(h *Histogram)    { r.add(h) }
func (r *Registry) RegisterLabeled(c *LabeledCounter) { r.add(c) }

func (r *Registry) add(e exposer) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *Registry) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	r.mu.Lock()
	entries := append([]exposer(nil), r.entries...)
	r.mu.Unlock()
	for _, e := range entries {
		e.expose(w)
	}
}

// HTTPMetrics exposes basic request metrics for a service.
type HTTPMetrics struct {
	RequestsTotal *Counter
	ErrorsTotal   *Counter
	Duration      *Histogram
}

func NewHTTPMetrics(reg *Registry, service string) *HTTPMetrics {
	m := &HTTPMetrics{
		RequestsTotal: NewCounter(service+"_http_requests_total", "Total HTTP requests"),
		ErrorsTotal:   NewCounter(service+"_http_errors_total", "Total HTTP 5xx responses"),
		Duration:      NewHistogram(service+"_http_request_duration_seconds", "HTTP request duration seconds", nil),
	}
	if reg != nil {
		reg.Register(m.RequestsTotal)
		reg.Register(m.ErrorsTotal)
		reg.RegisterHistogram(m.Duration)
	}
	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Middleware records request count, error count and latency.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: 200}
		start := time.Now()
		next.ServeHTTP(sr, r)
		m.RequestsTotal.Inc()
		if sr.status >= 500 {
			m.ErrorsTotal.Inc()
		}
		m.Duration.Observe(time.Since(start).Seconds())
	})
}
