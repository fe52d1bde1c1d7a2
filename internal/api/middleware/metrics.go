package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics counts requests by matched route pattern and by status code.
// One instance is shared across the whole router.
type Metrics struct {
	mu        sync.Mutex
	startedAt time.Time
	total     int64
	byRoute   map[string]int64
	byStatus  map[string]int64

	now func() time.Time
}

// MetricsSnapshot is a point-in-time copy of the collected counters.
type MetricsSnapshot struct {
	UptimeSeconds     float64          `json:"uptime_seconds"`
	TotalRequests     int64            `json:"total_requests"`
	RequestsPerMinute float64          `json:"requests_per_minute"`
	ByRoute           map[string]int64 `json:"by_route"`
	ByStatus          map[string]int64 `json:"by_status"`
}

// NewMetrics creates an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt: time.Now(),
		byRoute:   make(map[string]int64),
		byStatus:  make(map[string]int64),
		now:       time.Now,
	}
}

// Middleware records every completed request. It must sit inside the chi
// router so the matched route pattern is available after the handler runs.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.record(r.Method+" "+route, ww.Status())
	})
}

func (m *Metrics) record(route string, status int) {
	if status == 0 {
		status = http.StatusOK
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total++
	m.byRoute[route]++
	m.byStatus[strconv.Itoa(status)]++
}

// Snapshot returns a copy of the counters plus derived rates.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		UptimeSeconds: m.now().Sub(m.startedAt).Seconds(),
		TotalRequests: m.total,
		ByRoute:       make(map[string]int64, len(m.byRoute)),
		ByStatus:      make(map[string]int64, len(m.byStatus)),
	}
	if snap.UptimeSeconds > 0 {
		snap.RequestsPerMinute = float64(m.total) / (snap.UptimeSeconds / 60)
	}
	for k, v := range m.byRoute {
		snap.ByRoute[k] = v
	}
	for k, v := range m.byStatus {
		snap.ByStatus[k] = v
	}
	return snap
}
