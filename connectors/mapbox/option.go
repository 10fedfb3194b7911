package mapbox

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/kilianp07/evtrip/core/logger"
)

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("mapbox: nil http client")
		}
		c.http = hc
		return nil
	}
}

// WithGeocodingURL points the client at another geocoding endpoint.
func WithGeocodingURL(u string) Option {
	return func(c *Client) error {
		if err := checkURL(u); err != nil {
			return fmt.Errorf("mapbox: geocoding url: %w", err)
		}
		c.geocodingURL = u
		return nil
	}
}

// WithDirectionsURL points the client at another directions endpoint.
func WithDirectionsURL(u string) Option {
	return func(c *Client) error {
		if err := checkURL(u); err != nil {
			return fmt.Errorf("mapbox: directions url: %w", err)
		}
		c.directionsURL = u
		return nil
	}
}

// WithCountry restricts geocoding to ISO 3166 country codes, e.g. "FR".
// An empty value searches everywhere.
func WithCountry(country string) Option {
	return func(c *Client) error {
		c.country = country
		return nil
	}
}

// WithLanguage sets the language of place names and instructions.
func WithLanguage(lang string) Option {
	return func(c *Client) error {
		c.language = lang
		return nil
	}
}

// WithLimit caps the number of geocoding suggestions (1 to 10).
func WithLimit(n int) Option {
	return func(c *Client) error {
		if n < 1 || n > 10 {
			return fmt.Errorf("mapbox: limit must be between 1 and 10, got %d", n)
		}
		c.limit = n
		return nil
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) error {
		if l != nil {
			c.log = l
		}
		return nil
	}
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute url", raw)
	}
	return nil
}
