package soap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/logger"
)

// Client calls the trip time SOAP service.
type Client struct {
	endpoint string
	http     *http.Client
	log      logger.Logger
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for calls.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client for the service at endpoint, for example
// http://127.0.0.1:8000.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: strings.TrimSuffix(endpoint, "/"),
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      logger.NopLogger{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CalculateTripTime returns the total trip time in hours. Requests rejected
// locally or by the service return an error wrapping trip.ErrInvalidInput;
// other faults are returned as *Fault.
func (c *Client) CalculateTripTime(ctx context.Context, req trip.Request) (float64, error) {
	return c.callFloat(ctx, OpTripTime, trip.PolicyStrict, req)
}

// Calculate calls the legacy operation.
func (c *Client) Calculate(ctx context.Context, req trip.Request) (float64, error) {
	return c.callFloat(ctx, OpLegacy, trip.PolicySpeedRange, req)
}

// DetailedSummary returns the human readable summary of the trip.
func (c *Client) DetailedSummary(ctx context.Context, req trip.Request) (string, error) {
	if err := trip.Validate(req, trip.PolicyStrict); err != nil {
		return "", err
	}
	s, err := c.call(ctx, OpTripSummary, req)
	if err != nil {
		return "", err
	}
	if s == trip.InvalidSummary {
		return "", fmt.Errorf("%w: rejected by service", trip.ErrInvalidInput)
	}
	return s, nil
}

// Ping reports whether the service answers its WSDL.
func (c *Client) Ping(ctx context.Context) bool {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/?wsdl", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(r)
	if err != nil {
		c.log.Debugf("ping %s: %v", c.endpoint, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (c *Client) callFloat(ctx context.Context, op string, p trip.Policy, req trip.Request) (float64, error) {
	if err := trip.Validate(req, p); err != nil {
		return 0, err
	}
	s, err := c.call(ctx, op, req)
	if err != nil {
		return 0, err
	}
	v, err := parseFloatResult(s)
	if err != nil {
		return 0, err
	}
	if v == Sentinel {
		return 0, fmt.Errorf("%w: rejected by service", trip.ErrInvalidInput)
	}
	return v, nil
}

func (c *Client) call(ctx context.Context, op string, req trip.Request) (string, error) {
	body, err := encodeRequest(op, req)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", op, err)
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	r.Header.Set("Content-Type", "text/xml;charset=UTF-8")
	r.Header.Set("SOAPAction", op)
	resp, err := c.http.Do(r)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusInternalServerError {
		return "", fmt.Errorf("call %s: unexpected status %d", op, resp.StatusCode)
	}
	v, err := decodeResponse(io.LimitReader(resp.Body, maxEnvelopeBytes), op)
	if err != nil {
		c.log.Warnf("%s failed: %v", op, err)
		return "", err
	}
	c.log.Debugf("%s result %q", op, v)
	return v, nil
}
