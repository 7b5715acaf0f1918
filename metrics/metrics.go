// Package metrics exposes Prometheus collectors for the storefront.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "apparel_studio",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apparel_studio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "apparel_studio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	editorSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "apparel_studio",
			Subsystem: "editor",
			Name:      "open_sessions",
			Help:      "Number of editor sessions currently open.",
		},
	)

	editorRenders = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apparel_studio",
			Subsystem: "editor",
			Name:      "renders_total",
			Help:      "Total number of preview renders after committed edits.",
		},
	)

	designsSaved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apparel_studio",
			Subsystem: "designs",
			Name:      "saved_total",
			Help:      "Total number of designs saved, by product.",
		},
		[]string{"product"},
	)

	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apparel_studio",
			Subsystem: "orders",
			Name:      "checkouts_total",
			Help:      "Total number of checkout attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	revenue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apparel_studio",
			Subsystem: "orders",
			Name:      "revenue_total",
			Help:      "Sum of paid order totals.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		editorSessions,
		editorRenders,
		designsSaved,
		checkouts,
		revenue,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" || strings.HasPrefix(r.URL.Path, "/socket.io") {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

func SetOpenSessions(n int) {
	editorSessions.Set(float64(n))
}

func RecordRender() {
	editorRenders.Inc()
}

func RecordDesignSaved(productID string) {
	if productID == "" {
		productID = "unknown"
	}
	designsSaved.WithLabelValues(productID).Inc()
}

// RecordCheckout counts a checkout attempt. total is only added to revenue
// for successful ones.
func RecordCheckout(outcome string, total float64) {
	checkouts.WithLabelValues(outcome).Inc()
	if outcome == "paid" && total > 0 {
		revenue.Add(total)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath keeps label cardinality bounded by dropping ids from the
// request path.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "api" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/api"
	}
	if parts[1] == "editor" {
		switch {
		case len(parts) > 4:
			return "/api/editor/sessions/:id/" + parts[4]
		case len(parts) == 4:
			return "/api/editor/sessions/:id"
		}
		return "/api/editor/sessions"
	}
	if len(parts) > 2 {
		return "/api/" + parts[1] + "/:id"
	}
	return "/api/" + parts[1]
}
