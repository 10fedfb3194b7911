package metrics

import (
	"errors"
	"io"

	"github.com/kilianp07/evtrip/core/events"
	"github.com/kilianp07/evtrip/core/factory"
)

// TripSink records handled trip requests for observability purposes.
type TripSink interface {
	RecordTrip(ev events.TripEvent) error
}

// NopSink implements TripSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordTrip(events.TripEvent) error { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []TripSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...TripSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordTrip forwards the event to every sink and joins their errors.
func (m *MultiSink) RecordTrip(ev events.TripEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordTrip(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink implementing io.Closer.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.Sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

var sinkRegistry = factory.NewRegistry[TripSink]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[TripSink]) error {
	return sinkRegistry.Register(name, f)
}

// NewSink creates a TripSink from the provided configuration. No config
// yields a NopSink and several configs yield a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (TripSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]TripSink, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			_ = NewMultiSink(sinks...).Close()
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return NewMultiSink(sinks...), nil
}
