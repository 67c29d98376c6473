package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the collectors of the rebooking service
type Metrics struct {
	// HTTP
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Rebooking
	PassengersProcessed *prometheus.CounterVec
	ResolveDuration     *prometheus.HistogramVec
	ItinerariesFound    prometheus.Histogram
	CacheLookups        *prometheus.CounterVec
	RunsTotal           prometheus.Counter

	// Network
	NetworkAirports prometheus.Gauge
	NetworkFlights  prometheus.Gauge
}

// New registers every collector on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),

		PassengersProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rebooking",
				Name:      "passengers_total",
				Help:      "Affected passengers processed, by outcome",
			},
			[]string{"status"}, // rebooked, no_options, failed
		),

		ResolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rebooking",
				Name:      "resolve_duration_seconds",
				Help:      "Time spent resolving one passenger",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"cabin"},
		),

		ItinerariesFound: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rebooking",
				Name:      "itineraries_per_passenger",
				Help:      "Number of feasible itineraries found per passenger",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 500},
			},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Itinerary cache lookups, by result",
			},
			[]string{"result"}, // hit, miss, error
		),

		RunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rebooking",
				Name:      "runs_total",
				Help:      "Rebooking runs started",
			},
		),

		NetworkAirports: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "airports",
				Help:      "Airports in the loaded flight network",
			},
		),

		NetworkFlights: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "network",
				Name:      "flights",
				Help:      "Flights in the loaded flight network",
			},
		),
	}
}

// ObserveNetwork records the size of a freshly loaded network
func (m *Metrics) ObserveNetwork(airports, flights int) {
	m.NetworkAirports.Set(float64(airports))
	m.NetworkFlights.Set(float64(flights))
}
