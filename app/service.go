package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kilianp07/evtrip/api"
	apitrip "github.com/kilianp07/evtrip/api/trip"
	"github.com/kilianp07/evtrip/config"
	"github.com/kilianp07/evtrip/core/events"
	coremetrics "github.com/kilianp07/evtrip/core/metrics"
	coremon "github.com/kilianp07/evtrip/core/monitoring"
	"github.com/kilianp07/evtrip/core/trip"
	_ "github.com/kilianp07/evtrip/infra/history" // registers the sqlite and jsonl sinks
	"github.com/kilianp07/evtrip/infra/logger"
	"github.com/kilianp07/evtrip/infra/metrics"
	"github.com/kilianp07/evtrip/infra/monitoring"
	_ "github.com/kilianp07/evtrip/infra/mqtt" // registers the mqtt sink
	"github.com/kilianp07/evtrip/internal/eventbus"
	"github.com/kilianp07/evtrip/soap"
)

// Service wires the trip calculator to its HTTP surfaces and metric sinks.
type Service struct {
	Server      *api.Server
	bus         *eventbus.TypedBus[events.TripEvent]
	sink        coremetrics.TripSink
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	if err := logger.SetLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	policy, err := trip.ParsePolicy(cfg.Trip.Policy)
	if err != nil {
		return nil, err
	}

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	bus := eventbus.NewTyped[events.TripEvent]()
	calc := trip.NewCalculator(policy, logger.New("trip"))
	srv := api.NewServer(cfg.Server,
		soap.NewServer(cfg.SOAP, bus),
		apitrip.NewHandler(calc, bus))

	promEnabled := cfg.Metrics.HasSink("prometheus") && cfg.Metrics.PrometheusPort != ""
	return &Service{
		Server:      srv,
		bus:         bus,
		sink:        sink,
		log:         logg,
		promEnabled: promEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// Run starts the service and blocks until the context is cancelled or the
// HTTP server fails.
func (s *Service) Run(ctx context.Context) error {
	collected := metrics.StartEventCollector(ctx, s.bus, s.sink, s.log)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort, nil); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	err := s.Server.Start(ctx)
	s.bus.Close()
	<-collected
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	var errs []error
	if c, ok := s.sink.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}
