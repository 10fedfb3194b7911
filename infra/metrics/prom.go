package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evtrip/core/events"
	coremetrics "github.com/kilianp07/evtrip/core/metrics"
)

// PromSink records handled trip requests in Prometheus metrics.
type PromSink struct {
	requests *prometheus.CounterVec
	hours    *prometheus.HistogramVec
	stops    *prometheus.HistogramVec
}

// NewPromSink registers trip metrics on the default Prometheus registerer.
// The /metrics endpoint is started separately with StartPromServer.
func NewPromSink() (coremetrics.TripSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.TripSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_requests_total",
		Help: "Total number of handled trip time requests",
	}, []string{"source", "operation", "outcome"})
	hours := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trip_total_hours",
		Help:    "Computed total trip time in hours",
		Buckets: []float64{0.5, 1, 2, 4, 8, 12, 24, 48},
	}, []string{"operation"})
	stops := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trip_recharge_stops",
		Help:    "Number of recharge stops per computed trip",
		Buckets: prometheus.LinearBuckets(0, 1, 10),
	}, []string{"operation"})

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if hours, err = register(reg, hours); err != nil {
		return nil, err
	}
	if stops, err = register(reg, stops); err != nil {
		return nil, err
	}
	return &PromSink{requests: requests, hours: hours, stops: stops}, nil
}

// register returns the already registered collector when an identical one
// exists on reg.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordTrip counts the request and, on success, observes its result.
func (s *PromSink) RecordTrip(ev events.TripEvent) error {
	s.requests.WithLabelValues(ev.Source, ev.Operation, ev.Outcome()).Inc()
	if ev.Err != nil {
		return nil
	}
	s.hours.WithLabelValues(ev.Operation).Observe(ev.Result.TotalHours)
	s.stops.WithLabelValues(ev.Operation).Observe(float64(ev.Result.RechargeStops))
	return nil
}
