package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/kilianp07/evtrip/connectors/mapbox"
)

// RoutingConfig configures the address to distance lookup used by the CLI.
// The token is usually supplied as K_ROUTING__TOKEN.
type RoutingConfig struct {
	Token         string `json:"token"`
	GeocodingURL  string `json:"geocoding_url"`
	DirectionsURL string `json:"directions_url"`
	Country       string `json:"country"`
	Language      string `json:"language"`
}

// SetDefaults applies sane defaults.
func (c *RoutingConfig) SetDefaults() {
	if c.GeocodingURL == "" {
		c.GeocodingURL = mapbox.DefaultGeocodingURL
	}
	if c.DirectionsURL == "" {
		c.DirectionsURL = mapbox.DefaultDirectionsURL
	}
	if c.Country == "" {
		c.Country = "FR"
	}
	if c.Language == "" {
		c.Language = "fr"
	}
}

// Validate checks the endpoints. A missing token is only reported when a
// client is built.
func (c RoutingConfig) Validate() error {
	var errs []error
	for name, raw := range map[string]string{"geocoding_url": c.GeocodingURL, "directions_url": c.DirectionsURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid %s %q", name, raw))
		}
	}
	return errors.Join(errs...)
}

// Client builds a Mapbox client from the configuration.
func (c RoutingConfig) Client(opts ...mapbox.Option) (*mapbox.Client, error) {
	if c.Token == "" {
		return nil, fmt.Errorf("routing: token is required to resolve addresses (set routing.token or K_ROUTING__TOKEN)")
	}
	base := []mapbox.Option{
		mapbox.WithGeocodingURL(c.GeocodingURL),
		mapbox.WithDirectionsURL(c.DirectionsURL),
		mapbox.WithCountry(c.Country),
		mapbox.WithLanguage(c.Language),
	}
	return mapbox.NewClient(c.Token, append(base, opts...)...)
}
