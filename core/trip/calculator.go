// Package trip computes electric-vehicle trip durations including the time
// spent at recharge stops.
package trip

import (
	"fmt"
	"math"

	"github.com/kilianp07/evtrip/core/logger"
)

// Policy selects which inputs are validated before computing.
type Policy int

const (
	// PolicyStrict requires distance, speed and range to be positive and the
	// recharge duration to be non-negative.
	PolicyStrict Policy = iota
	// PolicySpeedRange only requires speed and range to be positive; a zero
	// distance or recharge duration is accepted. It is used by the legacy
	// calculate operation.
	PolicySpeedRange
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicySpeedRange:
		return "speed_range"
	default:
		return "unknown"
	}
}

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return PolicyStrict, nil
	case "speed_range":
		return PolicySpeedRange, nil
	default:
		return 0, fmt.Errorf("unknown trip policy %q", s)
	}
}

// Calculator evaluates trip requests. The zero value uses PolicyStrict and
// does not log. A Calculator holds no mutable state and is safe for
// concurrent use.
type Calculator struct {
	policy Policy
	log    logger.Logger
}

// NewCalculator returns a Calculator for the given policy. log may be nil.
func NewCalculator(p Policy, log logger.Logger) *Calculator {
	return &Calculator{policy: p, log: log}
}

// Policy returns the validation policy of the calculator.
func (c *Calculator) Policy() Policy { return c.policy }

// Compute returns the total trip time in hours.
func (c *Calculator) Compute(req Request) (float64, error) {
	b, err := c.Breakdown(req)
	if err != nil {
		return 0, err
	}
	return b.TotalHours, nil
}

// Breakdown validates the request and returns the detailed result.
func (c *Calculator) Breakdown(req Request) (Breakdown, error) {
	if c.log != nil {
		c.log.Debugw("trip request", map[string]any{
			"distance_km":      req.DistanceKM,
			"speed_kmh":        req.SpeedKMH,
			"range_km":         req.RangeKM,
			"recharge_minutes": req.RechargeMinutes,
			"policy":           c.policy.String(),
		})
	}
	if err := Validate(req, c.policy); err != nil {
		if c.log != nil {
			c.log.Warnf("rejected trip request: %v", err)
		}
		return Breakdown{}, err
	}
	b, err := compute(req)
	if err != nil {
		if c.log != nil {
			c.log.Warnf("rejected trip request: %v", err)
		}
		return Breakdown{}, err
	}
	if c.log != nil {
		c.log.Infow("trip computed", map[string]any{
			"driving_hours":  b.DrivingHours,
			"recharge_stops": b.RechargeStops,
			"total_hours":    b.TotalHours,
		})
	}
	return b, nil
}

// Validate checks req against the policy and returns an error wrapping
// ErrInvalidInput on the first violation.
func Validate(req Request, p Policy) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"distance", req.DistanceKM},
		{"speed", req.SpeedKMH},
		{"range", req.RangeKM},
		{"recharge duration", req.RechargeMinutes},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidInput, f.name)
		}
	}
	if req.SpeedKMH <= 0 {
		return fmt.Errorf("%w: speed must be positive, got %g", ErrInvalidInput, req.SpeedKMH)
	}
	if req.RangeKM <= 0 {
		return fmt.Errorf("%w: range must be positive, got %g", ErrInvalidInput, req.RangeKM)
	}
	if req.DistanceKM < 0 || (p != PolicySpeedRange && req.DistanceKM == 0) {
		return fmt.Errorf("%w: distance must be positive, got %g", ErrInvalidInput, req.DistanceKM)
	}
	if req.RechargeMinutes < 0 {
		return fmt.Errorf("%w: recharge duration must not be negative, got %g", ErrInvalidInput, req.RechargeMinutes)
	}
	return nil
}

// Compute returns the total trip time in hours using PolicyStrict.
func Compute(distance, speed, rangeKM, rechargeMinutes float64) (float64, error) {
	var c Calculator
	return c.Compute(Request{
		DistanceKM:      distance,
		SpeedKMH:        speed,
		RangeKM:         rangeKM,
		RechargeMinutes: rechargeMinutes,
	})
}

// maxMagnitude bounds stop counts and durations so that they stay exact
// integers in float64 and fit an int.
const maxMagnitude = min(1<<53, math.MaxInt)

// The vehicle starts fully charged, hence the -1 on the number of legs.
func compute(req Request) (Breakdown, error) {
	stops := math.Max(0, math.Ceil(req.DistanceKM/req.RangeKM)-1)
	driving := req.DistanceKM / req.SpeedKMH
	recharge := stops * (req.RechargeMinutes / 60)
	total := driving + recharge
	if stops > maxMagnitude || math.IsInf(total, 0) || math.IsNaN(total) || total > maxMagnitude {
		return Breakdown{}, fmt.Errorf("%w: trip too long", ErrInvalidInput)
	}
	return Breakdown{
		DrivingHours:  driving,
		RechargeStops: int(stops),
		RechargeHours: recharge,
		TotalHours:    total,
	}, nil
}
