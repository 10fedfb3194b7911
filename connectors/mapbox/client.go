// Package mapbox resolves trip distances from addresses with the Mapbox
// geocoding and directions APIs.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/evtrip/core/logger"
)

// Public endpoints used when no option overrides them.
const (
	DefaultGeocodingURL  = "https://api.mapbox.com/geocoding/v5/mapbox.places"
	DefaultDirectionsURL = "https://api.mapbox.com/directions/v5/mapbox/driving"
)

// MinQueryLength is the shortest query sent to the geocoding API.
const MinQueryLength = 3

var (
	// ErrNoPlace is returned when an address matches nothing.
	ErrNoPlace = errors.New("no place found")
	// ErrNoRoute is returned when the directions API finds no route.
	ErrNoRoute = errors.New("no route found")
)

// Client queries the Mapbox APIs. It is safe for concurrent use.
type Client struct {
	token         string
	geocodingURL  string
	directionsURL string
	country       string
	language      string
	limit         int
	http          *http.Client
	log           logger.Logger
}

// NewClient returns a client authenticated with the access token.
func NewClient(token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("mapbox: access token is required")
	}
	c := &Client{
		token:         token,
		geocodingURL:  DefaultGeocodingURL,
		directionsURL: DefaultDirectionsURL,
		limit:         5,
		http:          &http.Client{Timeout: 10 * time.Second},
		log:           logger.NopLogger{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Geocode returns suggestions for a free-text address. Queries shorter than
// MinQueryLength return no suggestion without calling the API.
func (c *Client) Geocode(ctx context.Context, query string) ([]Place, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return nil, nil
	}
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("limit", strconv.Itoa(c.limit))
	if c.country != "" {
		q.Set("country", c.country)
	}
	if c.language != "" {
		q.Set("language", c.language)
	}
	endpoint := strings.TrimRight(c.geocodingURL, "/") + "/" + url.PathEscape(query) + ".json?" + q.Encode()

	var resp geocodingResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	}
	places := make([]Place, 0, len(resp.Features))
	for _, f := range resp.Features {
		if len(f.Geometry.Coordinates) < 2 {
			continue
		}
		p := Place{
			ID:          f.ID,
			Name:        f.PlaceName,
			Coordinates: Coordinates{Lon: f.Geometry.Coordinates[0], Lat: f.Geometry.Coordinates[1]},
		}
		if len(f.PlaceType) > 0 {
			p.Type = f.PlaceType[0]
		}
		places = append(places, p)
	}
	return places, nil
}

// Route returns the driving route between two points. Distances are in
// kilometres rounded to two decimals, the duration in whole minutes.
func (c *Client) Route(ctx context.Context, from, to Coordinates) (Route, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("steps", "true")
	q.Set("overview", "false")
	if c.language != "" {
		q.Set("language", c.language)
	}
	endpoint := fmt.Sprintf("%s/%s;%s.json?%s", strings.TrimRight(c.directionsURL, "/"),
		formatCoordinates(from), formatCoordinates(to), q.Encode())

	var resp directionsResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return Route{}, fmt.Errorf("directions: %w", err)
	}
	if len(resp.Routes) == 0 {
		if resp.Message != "" {
			return Route{}, fmt.Errorf("%w: %s", ErrNoRoute, resp.Message)
		}
		return Route{}, ErrNoRoute
	}
	r := resp.Routes[0]
	out := Route{
		DistanceKM:      toKM(r.Distance),
		DurationMinutes: int(math.Round(r.Duration / 60)),
	}
	if len(r.Legs) > 0 {
		for _, s := range r.Legs[0].Steps {
			out.Steps = append(out.Steps, Step{Instruction: s.Maneuver.Instruction, DistanceKM: toKM(s.Distance)})
		}
	}
	return out, nil
}

// Distance geocodes both addresses, keeps the best suggestion for each and
// returns the route between them.
func (c *Client) Distance(ctx context.Context, from, to string) (Route, error) {
	start, err := c.locate(ctx, from)
	if err != nil {
		return Route{}, err
	}
	end, err := c.locate(ctx, to)
	if err != nil {
		return Route{}, err
	}
	c.log.Debugf("routing %s -> %s", start.Name, end.Name)
	return c.Route(ctx, start.Coordinates, end.Coordinates)
}

func (c *Client) locate(ctx context.Context, address string) (Place, error) {
	places, err := c.Geocode(ctx, address)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, fmt.Errorf("%w for %q", ErrNoPlace, address)
	}
	return places[0], nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// the url carries the access token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func formatCoordinates(c Coordinates) string {
	return strconv.FormatFloat(c.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lat, 'f', -1, 64)
}

func toKM(meters float64) float64 { return math.Round(meters/10) / 100 }
