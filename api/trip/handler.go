// Package trip exposes the trip calculation as a JSON endpoint.
package trip

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/evtrip/core/events"
	coretrip "github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/logger"
	"github.com/kilianp07/evtrip/internal/eventbus"
)

// Operation is the event operation name of the JSON endpoint.
const Operation = "trip"

// Response is the JSON body of a successful calculation.
type Response struct {
	TotalHours    float64 `json:"total_hours"`
	DrivingHours  float64 `json:"driving_hours"`
	RechargeStops int     `json:"recharge_stops"`
	RechargeHours float64 `json:"recharge_hours"`
	Hours         int     `json:"hours"`
	Minutes       int     `json:"minutes"`
	Summary       string  `json:"summary"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewHandler returns an HTTP handler computing trips posted to
// POST /api/trip. bus may be nil.
func NewHandler(calc *coretrip.Calculator, bus eventbus.Bus[events.TripEvent]) http.Handler {
	log := logger.New("api-trip")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req coretrip.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		b, err := calc.Breakdown(req)
		if bus != nil {
			bus.Publish(events.NewTripEvent("json", Operation, calc.Policy(), req, b, err))
		}
		if errors.Is(err, coretrip.ErrInvalidInput) {
			writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		if err != nil {
			log.Errorf("compute trip: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		h, m := b.HoursMinutes()
		writeJSON(w, log, http.StatusOK, Response{
			TotalHours:    b.TotalHours,
			DrivingHours:  b.DrivingHours,
			RechargeStops: b.RechargeStops,
			RechargeHours: b.RechargeHours,
			Hours:         h,
			Minutes:       m,
			Summary:       coretrip.Summary(req, b),
		})
	})
}

// writeJSON encodes v before committing the status so that encoding
// failures still answer 500.
func writeJSON(w http.ResponseWriter, log logger.Logger, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("encode response: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Debugf("write response: %v", err)
	}
}
