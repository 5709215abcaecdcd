package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)

	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashsale_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)
	SessionsReleasedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashsale_sessions_released_total",
			Help: "Released purchase sessions by trigger",
		},
		[]string{"trigger"},
	)
	SweepRuns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flashsale_sweep_runs_total",
			Help: "Expiry sweeper iterations",
		},
	)
	DashboardCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashsale_dashboard_cache_total",
			Help: "Dashboard cache lookups by result",
		},
		[]string{"result"},
	)
)

// Register installs all collectors on the default registry.
func Register() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ReservationsTotal,
		SessionsReleasedTotal,
		SweepRuns,
		DashboardCacheHits,
	)
}
