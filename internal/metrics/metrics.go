package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// SolverRuns counts background run lifecycle events: started, stopped, failed
	SolverRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_runs_total", Help: "Solver run lifecycle events."},
		[]string{"event"},
	)
	// FactChanges counts fact changes submitted to a running search by kind
	FactChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "solver_fact_changes_total", Help: "Fact changes submitted to the running search."},
		[]string{"kind"},
	)
	// Snapshots counts published route snapshots by source (solver or direct)
	Snapshots = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_snapshots_published_total", Help: "Route snapshots published."},
		[]string{"source"},
	)
	// StaleSolutions counts best solutions discarded before publication
	StaleSolutions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "solver_stale_solutions_total", Help: "Best solutions discarded because fact changes were still pending."},
	)

	// DistanceCacheLookups counts travel time cache lookups by result (hit, miss)
	DistanceCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "distance_cache_lookups_total", Help: "Travel time cache lookups."},
		[]string{"result"},
	)

	// WebhookDeliveries counts webhook delivery outcomes by status
	WebhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook deliveries by status."},
		[]string{"status"},
	)
	// WebhookLatency tracks webhook delivery latencies in milliseconds
	WebhookLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "webhook_delivery_latency_ms", Help: "Webhook delivery latency in ms.", Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000}},
		[]string{"status"},
	)
)

// RegisterDefault registers collectors to Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(SolverRuns, FactChanges, Snapshots, StaleSolutions)
		Registry.MustRegister(DistanceCacheLookups)
		Registry.MustRegister(WebhookDeliveries, WebhookLatency)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
