package trip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// JSONFloat is a float64 whose JSON form spells NaN and infinities as the
// strings "NaN", "+Inf" and "-Inf". Rejected requests can carry such values
// and still have to reach the audit log.
type JSONFloat float64

func (f JSONFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(v)
}

func (f *JSONFloat) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || b[0] != '"' {
		var v float64
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*f = JSONFloat(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || (!math.IsNaN(v) && !math.IsInf(v, 0)) {
		return fmt.Errorf("trip: invalid number %q", s)
	}
	*f = JSONFloat(v)
	return nil
}

type wireRequest struct {
	DistanceKM      JSONFloat `json:"distance_km"`
	SpeedKMH        JSONFloat `json:"speed_kmh"`
	RangeKM         JSONFloat `json:"range_km"`
	RechargeMinutes JSONFloat `json:"recharge_minutes"`
}

func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRequest{
		DistanceKM:      JSONFloat(r.DistanceKM),
		SpeedKMH:        JSONFloat(r.SpeedKMH),
		RangeKM:         JSONFloat(r.RangeKM),
		RechargeMinutes: JSONFloat(r.RechargeMinutes),
	})
}

// UnmarshalJSON rejects unknown fields.
func (r *Request) UnmarshalJSON(b []byte) error {
	var w wireRequest
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return err
	}
	*r = Request{
		DistanceKM:      float64(w.DistanceKM),
		SpeedKMH:        float64(w.SpeedKMH),
		RangeKM:         float64(w.RangeKM),
		RechargeMinutes: float64(w.RechargeMinutes),
	}
	return nil
}
