package metrics

import (
	"bufio"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type Snapshot struct {
	BytesIn  int64
	BytesOut int64
	Requests int64
}

// Service accumulates traffic for one listener.
type Service struct {
	key string

	bytesIn  atomic.Int64
	bytesOut atomic.Int64
	requests atomic.Int64
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		BytesIn:  s.bytesIn.Load(),
		BytesOut: s.bytesOut.Load(),
		Requests: s.requests.Load(),
	}
}

type Registry struct {
	mu       sync.RWMutex
	services map[string]*Service
}

func NewRegistry() *Registry {
	return &Registry{services: map[string]*Service{}}
}

func (r *Registry) Service(key string) *Service {
	if r == nil {
		return nil
	}
	k := strings.TrimSpace(key)
	if k == "" {
		return nil
	}

	r.mu.RLock()
	s := r.services[k]
	r.mu.RUnlock()
	if s != nil {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s := r.services[k]; s != nil {
		return s
	}
	s = &Service{key: k}
	r.services[k] = s
	return s
}

func (r *Registry) Snapshot() map[string]Snapshot {
	if r == nil {
		return map[string]Snapshot{}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Snapshot, len(r.services))
	for k, svc := range r.services {
		out[k] = svc.Snapshot()
	}
	return out
}

var (
	requestsDesc = prometheus.NewDesc(
		"panoptes_web_requests_total",
		"HTTP requests served, by service.",
		[]string{"service"}, nil,
	)
	bytesInDesc = prometheus.NewDesc(
		"panoptes_web_bytes_in_total",
		"Request body bytes read, by service.",
		[]string{"service"}, nil,
	)
	bytesOutDesc = prometheus.NewDesc(
		"panoptes_web_bytes_out_total",
		"Response bytes written, by service.",
		[]string{"service"}, nil,
	)
)

// Collector exposes the registry's counters to Prometheus.
func (r *Registry) Collector() prometheus.Collector {
	return collector{r: r}
}

type collector struct {
	r *Registry
}

func (c collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- requestsDesc
	ch <- bytesInDesc
	ch <- bytesOutDesc
}

func (c collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.r.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := snap[k]
		ch <- prometheus.MustNewConstMetric(requestsDesc, prometheus.CounterValue, float64(s.Requests), k)
		ch <- prometheus.MustNewConstMetric(bytesInDesc, prometheus.CounterValue, float64(s.BytesIn), k)
		ch <- prometheus.MustNewConstMetric(bytesOutDesc, prometheus.CounterValue, float64(s.BytesOut), k)
	}
}

func Wrap(svc *Service, next http.Handler) http.Handler {
	if next == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	}
	if svc == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		svc.requests.Add(1)

		if r != nil && r.Body != nil {
			r.Body = &countingReadCloser{ReadCloser: r.Body, svc: svc}
		}
		next.ServeHTTP(&countingResponseWriter{ResponseWriter: w, svc: svc}, r)
	})
}

type countingReadCloser struct {
	io.ReadCloser
	svc *Service
}

func (c *countingReadCloser) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	if n > 0 {
		c.svc.bytesIn.Add(int64(n))
	}
	return n, err
}

type countingResponseWriter struct {
	http.ResponseWriter
	svc *Service
}

func (w *countingResponseWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	if n > 0 {
		w.svc.bytesOut.Add(int64(n))
	}
	return n, err
}

func (w *countingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *countingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func (w *countingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
