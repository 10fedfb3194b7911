package trip

import "math"

// Request describes a single trip to evaluate. Distances are in kilometres,
// speed in km/h and the recharge duration in minutes.
type Request struct {
	DistanceKM      float64 `json:"distance_km"`
	SpeedKMH        float64 `json:"speed_kmh"`
	RangeKM         float64 `json:"range_km"`
	RechargeMinutes float64 `json:"recharge_minutes"`
}

// Breakdown is the outcome of a successful computation.
type Breakdown struct {
	DrivingHours  float64 `json:"driving_hours"`
	RechargeStops int     `json:"recharge_stops"`
	RechargeHours float64 `json:"recharge_hours"`
	TotalHours    float64 `json:"total_hours"`
}

// HoursMinutes splits TotalHours into whole hours and the truncated remaining
// minutes.
func (b Breakdown) HoursMinutes() (int, int) {
	h := math.Floor(b.TotalHours)
	// 1e-9 absorbs float noise such as 29.999999 minutes.
	m := math.Floor((b.TotalHours-h)*60 + 1e-9)
	if m >= 60 {
		return int(h) + 1, 0
	}
	return int(h), int(m)
}
