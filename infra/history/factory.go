// Package history provides SQLite and rotating JSONL stores for the trip
// audit trail and registers them as metrics sinks.
package history

import (
	"fmt"

	"github.com/kilianp07/evtrip/core/factory"
	corehist "github.com/kilianp07/evtrip/core/history"
	coremetrics "github.com/kilianp07/evtrip/core/metrics"
)

func init() {
	_ = coremetrics.RegisterSink("sqlite", func(conf map[string]any) (coremetrics.TripSink, error) {
		st, err := Open("sqlite", conf)
		if err != nil {
			return nil, err
		}
		return corehist.NewSink(st), nil
	})
	_ = coremetrics.RegisterSink("jsonl", func(conf map[string]any) (coremetrics.TripSink, error) {
		st, err := Open("jsonl", conf)
		if err != nil {
			return nil, err
		}
		return corehist.NewSink(st), nil
	})
}

// Open creates the store of the given backend from raw configuration.
func Open(backend string, conf map[string]any) (corehist.Store, error) {
	var c JSONLConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.Path == "" {
		return nil, fmt.Errorf("%s history: path is required", backend)
	}
	switch backend {
	case "sqlite":
		return NewSQLiteStore(c.Path)
	case "jsonl":
		return NewJSONLStore(c)
	default:
		return nil, fmt.Errorf("unknown history backend %q", backend)
	}
}
