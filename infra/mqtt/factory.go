package mqtt

import (
	"github.com/kilianp07/evtrip/core/factory"
	coremetrics "github.com/kilianp07/evtrip/core/metrics"
)

func init() {
	_ = coremetrics.RegisterSink("mqtt", func(conf map[string]any) (coremetrics.TripSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewTripPublisher(c)
	})
}
