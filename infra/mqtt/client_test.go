package mqtt

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evtrip/core/events"
	coremon "github.com/kilianp07/evtrip/core/monitoring"
	"github.com/kilianp07/evtrip/core/trip"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts         *paho.ClientOptions
	published    []published
	publishErrs  []error
	connectErr   error
	disconnected bool
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	return &dummyToken{err: m.connectErr}
}
func (m *mockClient) Disconnect(uint) { m.disconnected = true }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (t *dummyToken) Wait() bool                     { return true }
func (t *dummyToken) WaitTimeout(time.Duration) bool { return true }
func (t *dummyToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *dummyToken) Error() error { return t.err }

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() {
		newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) }
	})
}

func sampleEvent(err error) events.TripEvent {
	req := trip.Request{DistanceKM: 500, SpeedKMH: 100, RangeKM: 200, RechargeMinutes: 30}
	var res trip.Breakdown
	if err == nil {
		res = trip.Breakdown{DrivingHours: 5, RechargeStops: 2, RechargeHours: 1, TotalHours: 6}
	}
	return events.NewTripEvent("soap", "calculerTempsTrajet", trip.PolicyStrict, req, res, err)
}

func TestRecordTrip_PublishesPayload(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewTripPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", QoS: 1, Retain: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultTopic, pub.Topic())

	ev := sampleEvent(nil)
	require.NoError(t, pub.RecordTrip(ev))
	require.Len(t, mc.published, 1)
	got := mc.published[0]
	assert.Equal(t, DefaultTopic, got.topic)
	assert.Equal(t, byte(1), got.qos)
	assert.True(t, got.retain)

	var msg tripMessage
	require.NoError(t, json.Unmarshal(got.payload, &msg))
	assert.Equal(t, ev.ID, msg.CalculationID)
	assert.Equal(t, "ok", msg.Outcome)
	assert.Equal(t, "strict", msg.Policy)
	assert.Equal(t, 2, msg.RechargeStops)
	assert.InDelta(t, 6.0, msg.TotalHours, 1e-9)
	assert.Empty(t, msg.Error)
}

func TestRecordTrip_RejectedPayload(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewTripPublisher(Config{Broker: "tcp://localhost:1883", Topic: "fleet/trips"})
	require.NoError(t, err)
	require.NoError(t, pub.RecordTrip(sampleEvent(trip.ErrInvalidInput)))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &raw))
	assert.Equal(t, "fleet/trips", mc.published[0].topic)
	assert.Equal(t, "invalid", raw["outcome"])
	assert.Equal(t, "invalid input", raw["error"])
	_, hasTotal := raw["total_hours"]
	assert.False(t, hasTotal)
}

func TestRecordTrip_NonFiniteRequest(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewTripPublisher(Config{Broker: "tcp://localhost:1883"})
	require.NoError(t, err)

	req := trip.Request{DistanceKM: math.NaN(), SpeedKMH: 100, RangeKM: math.Inf(1), RechargeMinutes: 30}
	ev := events.NewTripEvent("soap", "calculerTempsTrajet", trip.PolicyStrict, req, trip.Breakdown{}, trip.ErrInvalidInput)
	require.NoError(t, pub.RecordTrip(ev))
	require.Len(t, mc.published, 1)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(mc.published[0].payload, &raw))
	assert.Equal(t, "NaN", raw["distance_km"])
	assert.Equal(t, "+Inf", raw["range_km"])
	assert.Equal(t, 100.0, raw["speed_kmh"])
	assert.Equal(t, "invalid", raw["outcome"])
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	pub, err := NewTripPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	require.NoError(t, pub.RecordTrip(sampleEvent(nil)))
	assert.Len(t, mc.published, 2)
}

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(any, map[string]string) {}
func (r *recordMonitor) Flush(time.Duration)                 {}

func TestRecordTrip_ErrorCaptured(t *testing.T) {
	fail := errors.New("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail}}
	withMock(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	pub, err := NewTripPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	ev := sampleEvent(nil)
	err = pub.RecordTrip(ev)
	require.Error(t, err)
	assert.ErrorIs(t, err, fail)
	require.NotNil(t, mon.err)
	assert.Equal(t, "mqtt", mon.tags["module"])
	assert.Equal(t, ev.ID, mon.tags["calculation_id"])
}

func TestNewTripPublisher_ConnectError(t *testing.T) {
	withMock(t, &mockClient{connectErr: errors.New("refused")})
	_, err := NewTripPublisher(Config{Broker: "tcp://localhost:1883"})
	assert.Error(t, err)
}

func TestNewTripPublisher_InvalidConfig(t *testing.T) {
	_, err := NewTripPublisher(Config{})
	assert.Error(t, err)
	_, err = NewTripPublisher(Config{Broker: "tcp://localhost:1883", QoS: 3})
	assert.Error(t, err)
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewTripPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1})
	require.NoError(t, err)
	assert.True(t, mc.opts.WillEnabled)
	assert.Equal(t, "lwt", mc.opts.WillTopic)
	assert.Equal(t, "bye", string(mc.opts.WillPayload))
	require.NoError(t, pub.Close())
	assert.True(t, mc.disconnected)
	assert.Empty(t, mc.published)
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "u", opts.Username)
	assert.Equal(t, "p", opts.Password)
}

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o644))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o644))
	require.NoError(t, os.WriteFile(caFile, certPEM, 0o644))
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	require.NoError(t, err)
	assert.NotEmpty(t, tlsCfg.Certificates)
	assert.NotNil(t, tlsCfg.RootCAs)

	_, err = Config{UseTLS: true}.LoadTLSConfig()
	assert.Error(t, err)
}

func TestLoadTLSConfig_InvalidCABundle(t *testing.T) {
	cert, key, _ := generateCert(t)
	ca := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(ca, []byte("not a certificate"), 0o644))

	_, err := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}.LoadTLSConfig()
	assert.ErrorContains(t, err, "holds no PEM certificate")
}
