// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service records.
type Metrics struct {
	// HTTP requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP latency by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
	// Hold attempts by outcome: success, contention, not_found, closed, error.
	HoldsTotal *prometheus.CounterVec
	// Payment confirmations by outcome: paid, replay, partial, invalid, error.
	ConfirmationsTotal *prometheus.CounterVec
	// Seats freed by the sweeper or cancellation, by reason.
	SeatsReleasedTotal *prometheus.CounterVec
	// Calls to the payment gateway by gateway name and status.
	GatewayRequestsTotal *prometheus.CounterVec
	// Duration of each sweep run.
	SweepDuration prometheus.Histogram
}

// New registers a fresh set of collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.  Tests pass a private
// prometheus.NewRegistry() so repeated construction does not panic.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HoldsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_holds_total",
				Help: "Seat hold attempts by outcome",
			},
			[]string{"outcome"},
		),
		ConfirmationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_confirmations_total",
				Help: "Payment confirmations by outcome",
			},
			[]string{"outcome"},
		),
		SeatsReleasedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seats_released_total",
				Help: "Seats returned to available",
			},
			[]string{"reason"},
		),
		GatewayRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_gateway_requests_total",
				Help: "Outbound payment gateway calls",
			},
			[]string{"gateway", "status"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "expiry_sweep_duration_seconds",
				Help:    "Duration of expiry sweeps",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
			},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HoldsTotal,
		m.ConfirmationsTotal,
		m.SeatsReleasedTotal,
		m.GatewayRequestsTotal,
		m.SweepDuration,
	)
	return m
}

// Nop returns collectors registered nowhere.  Components given a nil
// *Metrics use it.
func Nop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}
