// Package history keeps an audit trail of handled trip requests.
package history

import (
	"context"
	"time"

	"github.com/kilianp07/evtrip/core/events"
	"github.com/kilianp07/evtrip/core/trip"
)

// Record captures one handled trip request.
type Record struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
	Operation string          `json:"operation"`
	Policy    string          `json:"policy"`
	Outcome   string          `json:"outcome"`
	Request   trip.Request    `json:"request"`
	Result    *trip.Breakdown `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// FromEvent converts a bus event into a Record.
func FromEvent(ev events.TripEvent) Record {
	r := Record{
		ID:        ev.ID,
		Timestamp: ev.Time,
		Source:    ev.Source,
		Operation: ev.Operation,
		Policy:    ev.Policy.String(),
		Outcome:   ev.Outcome(),
		Request:   ev.Request,
	}
	if ev.Err != nil {
		r.Error = ev.Err.Error()
	} else {
		res := ev.Result
		r.Result = &res
	}
	return r
}

// Query defines filters for retrieving records. Zero fields match
// everything; Limit keeps the most recent records.
type Query struct {
	Start     time.Time
	End       time.Time
	Source    string
	Operation string
	Outcome   string
	Limit     int
}

// Match reports whether r passes every filter except Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Source != "" && r.Source != q.Source {
		return false
	}
	if q.Operation != "" && r.Operation != q.Operation {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// Store persists Records and supports querying. Query returns records in
// chronological order.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// DefaultWriteTimeout bounds a single Append issued by Sink.
const DefaultWriteTimeout = 5 * time.Second

// Sink records bus events into a Store. It satisfies metrics.TripSink.
type Sink struct {
	Store   Store
	Timeout time.Duration
}

// NewSink wraps store with DefaultWriteTimeout.
func NewSink(store Store) *Sink {
	return &Sink{Store: store, Timeout: DefaultWriteTimeout}
}

// RecordTrip appends the event to the store.
func (s *Sink) RecordTrip(ev events.TripEvent) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Store.Append(ctx, FromEvent(ev))
}

// Close closes the underlying store.
func (s *Sink) Close() error { return s.Store.Close() }

// Tail keeps the last n records of recs. n <= 0 keeps everything.
func Tail(recs []Record, n int) []Record {
	if n <= 0 || len(recs) <= n {
		return recs
	}
	return recs[len(recs)-n:]
}
