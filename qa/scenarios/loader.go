package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/evtrip/core/trip"
)

// TripDef is one trip of a scenario and the result it must produce.
type TripDef struct {
	Name            string   `yaml:"name"`
	Distance        float64  `yaml:"distance"`
	Speed           float64  `yaml:"speed"`
	Range           float64  `yaml:"range"`
	RechargeMinutes float64  `yaml:"recharge_minutes"`
	Expected        Expected `yaml:"expected"`
}

func (d TripDef) ToRequest() trip.Request {
	return trip.Request{
		DistanceKM:      d.Distance,
		SpeedKMH:        d.Speed,
		RangeKM:         d.Range,
		RechargeMinutes: d.RechargeMinutes,
	}
}

type Expected struct {
	TotalHours    float64 `yaml:"total_hours"`
	RechargeStops int     `yaml:"recharge_stops"`
	Invalid       bool    `yaml:"invalid"`
	Summary       string  `yaml:"summary,omitempty"`
}

type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Policy      string    `yaml:"policy"`
	Trips       []TripDef `yaml:"trips"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
