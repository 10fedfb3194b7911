package metrics

import (
	"github.com/kilianp07/evtrip/core/factory"
	coremetrics "github.com/kilianp07/evtrip/core/metrics"
)

// init registers built-in metrics sinks.
func init() {
	_ = coremetrics.RegisterSink("nop", func(map[string]any) (coremetrics.TripSink, error) {
		return coremetrics.NopSink{}, nil
	})

	// The listen port lives in metrics.prometheus_port, not in the sink conf.
	_ = coremetrics.RegisterSink("prometheus", func(map[string]any) (coremetrics.TripSink, error) {
		return NewPromSink()
	})

	_ = coremetrics.RegisterSink("influx", func(conf map[string]any) (coremetrics.TripSink, error) {
		var c InfluxConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewInfluxSinkWithFallback(c), nil
	})
}
