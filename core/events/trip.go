package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evtrip/core/trip"
)

// TripEvent is published once per handled trip request. Err is set when the
// request was rejected, in which case Result is zero.
type TripEvent struct {
	ID        string
	Source    string
	Operation string
	Policy    trip.Policy
	Request   trip.Request
	Result    trip.Breakdown
	Err       error
	Time      time.Time
}

// NewTripEvent builds an event with a fresh identifier and the current time.
func NewTripEvent(source, operation string, p trip.Policy, req trip.Request, res trip.Breakdown, err error) TripEvent {
	return TripEvent{
		ID:        uuid.NewString(),
		Source:    source,
		Operation: operation,
		Policy:    p,
		Request:   req,
		Result:    res,
		Err:       err,
		Time:      time.Now().UTC(),
	}
}

// Outcome returns "ok" or "invalid" depending on Err.
func (e TripEvent) Outcome() string {
	if e.Err != nil {
		return "invalid"
	}
	return "ok"
}
