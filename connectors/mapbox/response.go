package mapbox

// Coordinates is a WGS84 position.
type Coordinates struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Place is a geocoding suggestion.
type Place struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
}

// Step is one manoeuvre of a route.
type Step struct {
	Instruction string  `json:"instruction"`
	DistanceKM  float64 `json:"distance_km"`
}

// Route is the first route the directions API proposes between two points.
type Route struct {
	DistanceKM      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Steps           []Step  `json:"steps"`
}

type geocodingResponse struct {
	Features []struct {
		ID        string   `json:"id"`
		PlaceName string   `json:"place_name"`
		PlaceType []string `json:"place_type"`
		Geometry  struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Legs     []struct {
			Steps []struct {
				Distance float64 `json:"distance"`
				Maneuver struct {
					Instruction string `json:"instruction"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}
