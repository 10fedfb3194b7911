package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/evtrip/core/events"
	coremon "github.com/kilianp07/evtrip/core/monitoring"
	"github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/logger"
)

// DefaultTopic receives computed trips when Config.Topic is empty.
const DefaultTopic = "evtrip/trips/computed"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker     string      `json:"broker"`
	ClientID   string      `json:"client_id"`
	Username   string      `json:"username"`
	Password   string      `json:"password"`
	Topic      string      `json:"topic"`
	QoS        byte        `json:"qos"`
	Retain     bool        `json:"retain"`
	UseTLS     bool        `json:"use_tls"`
	ClientCert string      `json:"client_cert"`
	ClientKey  string      `json:"client_key"`
	CABundle   string      `json:"ca_bundle"`
	LWTTopic   string      `json:"lwt_topic"`
	LWTPayload string      `json:"lwt_payload"`
	LWTQoS     byte        `json:"lwt_qos"`
	LWTRetain  bool        `json:"lwt_retain"`
	MaxRetries int         `json:"max_retries"`
	BackoffMS  int         `json:"backoff_ms"`
	TLSConfig  *tls.Config `json:"-"`
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	if c.QoS > 2 || c.LWTQoS > 2 {
		return fmt.Errorf("mqtt qos must be 0, 1 or 2")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// TripPublisher publishes every handled trip request as a JSON message. It
// implements metrics.TripSink.
type TripPublisher struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	logger     logger.Logger
}

type tripMessage struct {
	CalculationID   string         `json:"calculation_id"`
	Source          string         `json:"source"`
	Operation       string         `json:"operation"`
	Policy          string         `json:"policy"`
	Outcome         string         `json:"outcome"`
	DistanceKM      trip.JSONFloat `json:"distance_km"`
	SpeedKMH        trip.JSONFloat `json:"speed_kmh"`
	RangeKM         trip.JSONFloat `json:"range_km"`
	RechargeMinutes trip.JSONFloat `json:"recharge_minutes"`
	DrivingHours    float64        `json:"driving_hours,omitempty"`
	RechargeStops   int            `json:"recharge_stops,omitempty"`
	RechargeHours   float64        `json:"recharge_hours,omitempty"`
	TotalHours      float64        `json:"total_hours,omitempty"`
	Error           string         `json:"error,omitempty"`
	Timestamp       int64          `json:"timestamp"`
}

// NewTripPublisher connects to the MQTT broker.
func NewTripPublisher(cfg Config) (*TripPublisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "evtrip-" + uuid.NewString()[:8]
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &TripPublisher{
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		logger:     log,
	}
	if p.topic == "" {
		p.topic = DefaultTopic
	}
	if p.maxRetries <= 0 {
		p.maxRetries = 3
	}
	if p.backoff <= 0 {
		p.backoff = 100 * time.Millisecond
	}
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("ca bundle %s holds no PEM certificate", c.CABundle)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Topic returns the topic trips are published to.
func (p *TripPublisher) Topic() string { return p.topic }

// RecordTrip publishes the event, retrying with exponential backoff.
func (p *TripPublisher) RecordTrip(ev events.TripEvent) error {
	payload, err := json.Marshal(newTripMessage(ev))
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(p.topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published trip %s to %s", ev.ID, p.topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "calculation_id": ev.ID})
	return fmt.Errorf("publish trip %s: %w", ev.ID, publishErr)
}

// Close gracefully closes the MQTT connection.
func (p *TripPublisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}

func newTripMessage(ev events.TripEvent) tripMessage {
	m := tripMessage{
		CalculationID:   ev.ID,
		Source:          ev.Source,
		Operation:       ev.Operation,
		Policy:          ev.Policy.String(),
		Outcome:         ev.Outcome(),
		DistanceKM:      trip.JSONFloat(ev.Request.DistanceKM),
		SpeedKMH:        trip.JSONFloat(ev.Request.SpeedKMH),
		RangeKM:         trip.JSONFloat(ev.Request.RangeKM),
		RechargeMinutes: trip.JSONFloat(ev.Request.RechargeMinutes),
		Timestamp:       ev.Time.UnixMilli(),
	}
	if ev.Err != nil {
		m.Error = ev.Err.Error()
		return m
	}
	m.DrivingHours = ev.Result.DrivingHours
	m.RechargeStops = ev.Result.RechargeStops
	m.RechargeHours = ev.Result.RechargeHours
	m.TotalHours = ev.Result.TotalHours
	return m
}
