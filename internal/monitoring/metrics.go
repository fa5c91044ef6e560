// Package monitoring exposes Prometheus metrics for jobs, broker calls and trading cycles.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meridian"

// Recorder owns the collectors and their registry
type Recorder struct {
	registry *prometheus.Registry

	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	brokerCalls   *prometheus.CounterVec
	brokerLatency *prometheus.HistogramVec
	ordersTotal   *prometheus.CounterVec
	tradedAmount  *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates a recorder with its own registry, including the Go and process collectors
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome",
		}, []string{"job", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		brokerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_calls_total",
			Help:      "Broker calls by gate, method and outcome",
		}, []string{"gate", "method", "status"}),
		brokerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "broker_call_duration_seconds",
			Help:      "Broker call latency including the rate gate wait",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gate", "method"}),
		ordersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Orders by stage and side",
		}, []string{"stage"}),
		tradedAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "traded_amount_dollars_total",
			Help:      "Dollar amount submitted to the broker",
		}, []string{"side"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.jobRuns, r.jobDuration,
		r.brokerCalls, r.brokerLatency,
		r.ordersTotal, r.tradedAmount,
		r.httpRequests, r.httpDuration,
	)
	return r
}

// Registry returns the registry the collectors are registered with
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveJob records one job run
func (r *Recorder) ObserveJob(name string, err error, duration time.Duration) {
	r.jobRuns.WithLabelValues(name, outcome(err)).Inc()
	r.jobDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ObserveBrokerCall implements broker.CallObserver
func (r *Recorder) ObserveBrokerCall(gate, method string, err error, duration time.Duration) {
	r.brokerCalls.WithLabelValues(gate, method, outcome(err)).Inc()
	r.brokerLatency.WithLabelValues(gate, method).Observe(duration.Seconds())
}

// ObserveOrders counts orders reaching a stage (decided, submitted, skipped, reconciled)
func (r *Recorder) ObserveOrders(stage string, n int) {
	if n > 0 {
		r.ordersTotal.WithLabelValues(stage).Add(float64(n))
	}
}

// ObserveTraded adds submitted dollar amounts
func (r *Recorder) ObserveTraded(bought, sold float64) {
	if bought > 0 {
		r.tradedAmount.WithLabelValues("buy").Add(bought)
	}
	if sold > 0 {
		r.tradedAmount.WithLabelValues("sell").Add(sold)
	}
}

// Middleware records request counts and latency labelled by the chi route pattern
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, req)

		route := req.URL.Path
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		r.httpRequests.WithLabelValues(route, req.Method, strconv.Itoa(rw.status)).Inc()
		r.httpDuration.WithLabelValues(route, req.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
