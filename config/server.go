package config

import (
	"fmt"
	"net"

	"github.com/kilianp07/evtrip/core/trip"
)

// DefaultAddress is where the service listens when nothing is configured.
const DefaultAddress = "127.0.0.1:8000"

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Address string `json:"address"`
	// CORSOrigins lists the origins allowed to call the service. "*" or an
	// empty list allows any origin.
	CORSOrigins []string `json:"cors_origins"`
}

// SetDefaults applies sane defaults.
func (c *ServerConfig) SetDefaults() {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
}

// Validate checks the listen address.
func (c ServerConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Address, err)
	}
	return nil
}

// TripConfig selects the validation policy of the JSON endpoint and the CLI.
type TripConfig struct {
	Policy string `json:"policy"`
}

// SetDefaults applies sane defaults.
func (c *TripConfig) SetDefaults() {
	if c.Policy == "" {
		c.Policy = trip.PolicyStrict.String()
	}
}

// Validate checks the policy name.
func (c TripConfig) Validate() error {
	_, err := trip.ParsePolicy(c.Policy)
	return err
}
