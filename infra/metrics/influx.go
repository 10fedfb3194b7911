package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kilianp07/evtrip/core/events"
	coremetrics "github.com/kilianp07/evtrip/core/metrics"
	"github.com/kilianp07/evtrip/infra/logger"
)

// InfluxConfig holds the connection settings of an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes trip calculations to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.TripSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordTrip writes one trip_calculation point per event.
func (s *InfluxSink) RecordTrip(ev events.TripEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, tripPoint(ev))
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func tripPoint(ev events.TripEvent) *write.Point {
	p := write.NewPointWithMeasurement("trip_calculation").
		AddTag("calculation_id", ev.ID).
		AddTag("source", ev.Source).
		AddTag("operation", ev.Operation).
		AddTag("policy", ev.Policy.String()).
		AddTag("outcome", ev.Outcome()).
		AddField("distance_km", round3(ev.Request.DistanceKM)).
		AddField("speed_kmh", round3(ev.Request.SpeedKMH)).
		AddField("range_km", round3(ev.Request.RangeKM)).
		AddField("recharge_minutes", round3(ev.Request.RechargeMinutes))
	if ev.Err != nil {
		p = p.AddField("error", ev.Err.Error())
	} else {
		p = p.AddField("driving_hours", round3(ev.Result.DrivingHours)).
			AddField("recharge_stops", ev.Result.RechargeStops).
			AddField("recharge_hours", round3(ev.Result.RechargeHours)).
			AddField("total_hours", round3(ev.Result.TotalHours))
	}
	return p.SetTime(ev.Time)
}

func round3(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return math.Round(f*1000) / 1000
}
