package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/evtrip/app"
	"github.com/kilianp07/evtrip/config"
	"github.com/kilianp07/evtrip/core/factory"
	"github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/mqtt"
	"github.com/kilianp07/evtrip/soap"
)

const (
	influxOrg    = "e2e_org"
	influxBucket = "e2e_bucket"
	influxToken  = "e2e-token"
)

// startInflux starts an InfluxDB 2.7 container initialised with the e2e
// organisation, bucket and token.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         influxOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      influxBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": influxToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	return cont, fmt.Sprintf("http://%s:%s", host, port.Port())
}

// startMosquitto spins up an anonymous Mosquitto broker for tests.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	require.NoError(t, os.WriteFile(path, []byte(conf), 0o644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func subscribeTrips(t *testing.T, broker string) (<-chan map[string]any, func()) {
	t.Helper()
	cli := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-listener"))
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		t.Skipf("mosquitto not ready: %v", tok.Error())
	}
	msgs := make(chan map[string]any, 8)
	tok := cli.Subscribe(mqtt.DefaultTopic, 1, func(_ paho.Client, m paho.Message) {
		var payload map[string]any
		if err := json.Unmarshal(m.Payload(), &payload); err == nil {
			msgs <- payload
		}
	})
	tok.Wait()
	require.NoError(t, tok.Error())
	return msgs, func() { cli.Disconnect(100) }
}

// Test_E2E_TripSinks runs the service against real InfluxDB and Mosquitto
// containers and checks that a SOAP calculation reaches both sinks.
func Test_E2E_TripSinks(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	influxCont, influxURL := startInflux(ctx, t)
	defer influxCont.Terminate(ctx) //nolint:errcheck
	mqttCont, broker := startMosquitto(ctx, t)
	defer mqttCont.Terminate(ctx) //nolint:errcheck

	msgs, stop := subscribeTrips(t, broker)
	defer stop()

	cfg := config.Default()
	cfg.Server.Address = "127.0.0.1:0"
	cfg.Metrics.Sinks = []factory.ModuleConfig{
		{Type: "influx", Conf: map[string]any{"url": influxURL, "token": influxToken, "org": influxOrg, "bucket": influxBucket}},
		{Type: "mqtt", Conf: map[string]any{"broker": broker, "client_id": "evtrip-e2e", "qos": 1}},
	}
	svc, err := app.New(cfg)
	require.NoError(t, err)
	defer svc.Close() //nolint:errcheck

	runCtx, stopSvc := context.WithCancel(ctx)
	defer stopSvc()
	go func() { _ = svc.Run(runCtx) }()
	require.Eventually(t, func() bool { return svc.Server.Addr() != "127.0.0.1:0" }, 5*time.Second, 20*time.Millisecond)

	client := soap.NewClient("http://" + svc.Server.Addr())
	total, err := client.CalculateTripTime(ctx, trip.Request{DistanceKM: 500, SpeedKMH: 100, RangeKM: 200, RechargeMinutes: 30})
	require.NoError(t, err)
	assert.InDelta(t, 6.0, total, 1e-9)

	var id string
	select {
	case m := <-msgs:
		assert.Equal(t, soap.OpTripTime, m["operation"])
		assert.Equal(t, "ok", m["outcome"])
		assert.InDelta(t, 6.0, m["total_hours"], 1e-9)
		id, _ = m["calculation_id"].(string)
	case <-time.After(10 * time.Second):
		t.Fatal("no trip message received on mqtt")
	}

	influx := NewInfluxClient(influxURL, influxOrg, influxBucket, influxToken)
	defer influx.Close()
	require.Eventually(t, func() bool {
		points, err := influx.TripPoints(ctx, "total_hours")
		if err != nil {
			return false
		}
		v, ok := points[id]
		return ok && v == 6.0
	}, 20*time.Second, 250*time.Millisecond)
}
