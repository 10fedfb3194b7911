// Package factory provides a small generic registry used to instantiate
// metric sinks from configuration. Modules are defined by a type string and a
// map of raw settings; factories decode the settings into typed structs.
//
//	reg := factory.NewRegistry[metrics.TripSink]()
//	_ = reg.Register("nop", func(map[string]any) (metrics.TripSink, error) {
//	    return metrics.NopSink{}, nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "nop"})
package factory
