package scenarios

import (
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evtrip/core/events"
	"github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/logger"
	"github.com/kilianp07/evtrip/internal/eventbus"
	"github.com/kilianp07/evtrip/soap"
)

const tolerance = 1e-9

// RunScenario checks every trip against the calculator and, for the strict
// and speed_range policies, against the matching SOAP operation.
func RunScenario(t *testing.T, sc *Scenario) {
	p, err := trip.ParsePolicy(sc.Policy)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	calc := trip.NewCalculator(p, logger.NopLogger{})

	bus := eventbus.NewTyped[events.TripEvent]()
	defer bus.Close()
	sub := bus.Subscribe()
	ts := httptest.NewServer(soap.NewServerWithRegistry(soap.Config{}, bus, prometheus.NewRegistry()))
	defer ts.Close()
	client := soap.NewClient(ts.URL)

	call := client.CalculateTripTime
	if p == trip.PolicySpeedRange {
		call = client.Calculate
	}

	for _, d := range sc.Trips {
		req := d.ToRequest()
		b, err := calc.Breakdown(req)
		if d.Expected.Invalid {
			if !errors.Is(err, trip.ErrInvalidInput) {
				t.Errorf("%s/%s: expected invalid input, got %v", sc.Name, d.Name, err)
			}
			if _, err := call(context.Background(), req); !errors.Is(err, trip.ErrInvalidInput) {
				t.Errorf("%s/%s: soap expected invalid input, got %v", sc.Name, d.Name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s/%s: unexpected error %v", sc.Name, d.Name, err)
			continue
		}
		if math.Abs(b.TotalHours-d.Expected.TotalHours) > tolerance {
			t.Errorf("%s/%s: expected %gh, got %gh", sc.Name, d.Name, d.Expected.TotalHours, b.TotalHours)
		}
		if b.RechargeStops != d.Expected.RechargeStops {
			t.Errorf("%s/%s: expected %d stops, got %d", sc.Name, d.Name, d.Expected.RechargeStops, b.RechargeStops)
		}
		if d.Expected.Summary != "" && trip.Summary(req, b) != d.Expected.Summary {
			t.Errorf("%s/%s: summary mismatch:\n%s", sc.Name, d.Name, trip.Summary(req, b))
		}

		got, err := call(context.Background(), req)
		if err != nil {
			t.Errorf("%s/%s: soap call: %v", sc.Name, d.Name, err)
			continue
		}
		if math.Abs(got-b.TotalHours) > tolerance {
			t.Errorf("%s/%s: soap returned %g, calculator %g", sc.Name, d.Name, got, b.TotalHours)
		}
		if ev := <-sub; ev.Result.RechargeStops != b.RechargeStops {
			t.Errorf("%s/%s: event carries %d stops", sc.Name, d.Name, ev.Result.RechargeStops)
		}
	}
}
