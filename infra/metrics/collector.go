package metrics

import (
	"context"

	"github.com/kilianp07/evtrip/core/events"
	coremetrics "github.com/kilianp07/evtrip/core/metrics"
	"github.com/kilianp07/evtrip/infra/logger"
	"github.com/kilianp07/evtrip/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records every trip
// event on the sink. It stops when the bus is closed, or when the context is
// canceled after recording the events already buffered. The returned channel
// is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.TripEvent], sink coremetrics.TripSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	record := func(ev events.TripEvent) {
		if err := sink.RecordTrip(ev); err != nil {
			log.Errorf("record trip %s: %v", ev.ID, err)
		}
	}
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				drain(sub, record)
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(ev)
			}
		}
	}()
	return done
}

// drain records what is buffered in sub without waiting for more.
func drain(sub <-chan events.TripEvent, record func(events.TripEvent)) {
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			record(ev)
		default:
			return
		}
	}
}
