package e2e

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient reads back the points written by the influx sink during the
// E2E tests.
type InfluxClient struct {
	bucket string
	client influxdb2.Client
	query  api.QueryAPI
}

// NewInfluxClient creates a new client for the given parameters. It assumes
// the server is already running and reachable.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{bucket: bucket, client: c, query: c.QueryAPI(org)}
}

// TripPoints returns the recorded values of field for the trip_calculation
// measurement, keyed by calculation_id.
func (c *InfluxClient) TripPoints(ctx context.Context, field string) (map[string]any, error) {
	flux := fmt.Sprintf(`from(bucket:%q)
  |> range(start:-10m)
  |> filter(fn: (r) => r._measurement == "trip_calculation" and r._field == %q)`, c.bucket, field)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	out := map[string]any{}
	for res.Next() {
		rec := res.Record()
		id, _ := rec.ValueByKey("calculation_id").(string)
		out[id] = rec.Value()
	}
	return out, res.Err()
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
