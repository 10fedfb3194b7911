package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corehist "github.com/kilianp07/evtrip/core/history"
	"github.com/kilianp07/evtrip/core/trip"
	"github.com/kilianp07/evtrip/infra/history"
	"github.com/kilianp07/evtrip/soap"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCompute(t *testing.T) {
	out, err := run(t, "compute", "--distance", "500", "--speed", "100", "--range", "200", "--recharge", "30")
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func TestCompute_Summary(t *testing.T) {
	out, err := run(t, "compute", "--distance", "150", "--speed", "100", "--range", "200", "--recharge", "30", "--summary")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Trip of 150km at 100km/h with a range of 200km:"))
	assert.Contains(t, out, "- Total time: 1h30min")
}

func TestCompute_Invalid(t *testing.T) {
	_, err := run(t, "compute", "--distance", "500", "--speed", "0", "--range", "200")
	assert.ErrorIs(t, err, trip.ErrInvalidInput)

	_, err = run(t, "compute", "--distance", "500", "--speed", "100")
	assert.ErrorContains(t, err, `required flag(s) "range" not set`)
}

func TestCompute_Policy(t *testing.T) {
	out, err := run(t, "compute", "--distance", "0", "--speed", "100", "--range", "200", "--policy", "speed_range")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	_, err = run(t, "compute", "--distance", "0", "--speed", "100", "--range", "200")
	assert.ErrorIs(t, err, trip.ErrInvalidInput)
}

func TestCompute_PolicyFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evtrip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trip:\n  policy: speed_range\n"), 0o644))
	out, err := run(t, "-c", path, "compute", "--distance", "0", "--speed", "50", "--range", "100")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	_, err = run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "compute", "--distance", "1", "--speed", "1", "--range", "1")
	assert.ErrorContains(t, err, "load config")
}

func newService(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(soap.NewServerWithRegistry(soap.Config{}, nil, prometheus.NewRegistry()))
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestCall(t *testing.T) {
	endpoint := newService(t)

	out, err := run(t, "call", "--endpoint", endpoint, "--distance", "250", "--speed", "100", "--range", "200", "--recharge", "30")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = run(t, "call", "--endpoint", endpoint, "--summary", "--distance", "250", "--speed", "100", "--range", "200", "--recharge", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "- Recharge stops: 1")

	out, err = run(t, "call", "--endpoint", endpoint, "--legacy", "--distance", "0", "--speed", "100", "--range", "200")
	require.NoError(t, err)
	assert.Equal(t, "0\n", out)

	out, err = run(t, "call", "--endpoint", endpoint, "--ping")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
}

func TestCall_Errors(t *testing.T) {
	endpoint := newService(t)

	_, err := run(t, "call", "--endpoint", endpoint, "--summary", "--legacy")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = run(t, "call", "--endpoint", endpoint, "--distance", "-1", "--speed", "100", "--range", "200")
	assert.ErrorIs(t, err, trip.ErrInvalidInput)

	_, err = run(t, "call", "--endpoint", "http://127.0.0.1:1", "--ping", "--timeout", "1s")
	assert.ErrorContains(t, err, "unreachable")
}

func TestHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trips.db")
	st, err := history.NewSQLiteStore(path)
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, st.Append(ctx, corehist.Record{ID: "old", Timestamp: now.Add(-2 * time.Hour), Source: "soap", Outcome: "ok"}))
	require.NoError(t, st.Append(ctx, corehist.Record{ID: "new", Timestamp: now, Source: "json", Outcome: "invalid"}))
	require.NoError(t, st.Close())

	out, err := run(t, "history", "--path", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"id":"old"`)

	out, err = run(t, "history", "--path", path, "--since", "1h")
	require.NoError(t, err)
	assert.NotContains(t, out, `"id":"old"`)
	assert.Contains(t, out, `"id":"new"`)

	_, err = run(t, "history", "--backend", "parquet", "--path", path)
	assert.ErrorContains(t, err, "unknown history backend")
}

func TestCall_OAuth(t *testing.T) {
	tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"t0k","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokens.Close()
	svc := soap.NewServerWithRegistry(soap.Config{}, nil, prometheus.NewRegistry())
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		svc.ServeHTTP(w, r)
	}))
	defer gateway.Close()

	args := []string{"call", "--endpoint", gateway.URL, "--distance", "500", "--speed", "100", "--range", "200", "--recharge", "30"}
	_, err := run(t, args...)
	assert.ErrorContains(t, err, "unexpected status 401")

	out, err := run(t, append(args, "--token-url", tokens.URL, "--client-id", "cli", "--client-secret", "s")...)
	require.NoError(t, err)
	assert.Equal(t, "6\n", out)
}

func newRoutingConfig(t *testing.T, meters float64) string {
	t.Helper()
	places := map[string]string{"Paris": "[2.3522,48.8566]", "Lyon": "[4.8357,45.764]"}
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "pk.test" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		switch {
		case strings.HasPrefix(r.URL.Path, "/geocoding/"):
			name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/geocoding/"), ".json")
			coords, ok := places[name]
			if !ok {
				_, _ = w.Write([]byte(`{"features":[]}`))
				return
			}
			_, _ = w.Write([]byte(`{"features":[{"id":"place.` + name + `","place_name":"` + name + `, France","place_type":["place"],"geometry":{"coordinates":` + coords + `}}]}`))
		case strings.HasPrefix(r.URL.Path, "/directions/"):
			_, _ = w.Write([]byte(`{"routes":[{"distance":` + strconv.FormatFloat(meters, 'f', -1, 64) + `,"duration":18000,"legs":[]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(api.Close)
	path := filepath.Join(t.TempDir(), "evtrip.yaml")
	cfg := "routing:\n  token: pk.test\n  geocoding_url: " + api.URL + "/geocoding\n  directions_url: " + api.URL + "/directions\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestCompute_FromTo(t *testing.T) {
	cfg := newRoutingConfig(t, 500000)
	out, err := run(t, "-c", cfg, "compute", "--from", "Paris", "--to", "Lyon", "--speed", "100", "--range", "200", "--recharge", "30")
	require.NoError(t, err)
	assert.Contains(t, out, "route Paris -> Lyon: 500km, about 300min of driving")
	assert.True(t, strings.HasSuffix(out, "\n6\n"), out)

	_, err = run(t, "-c", cfg, "compute", "--from", "Paris", "--to", "Atlantis", "--speed", "100", "--range", "200")
	assert.ErrorContains(t, err, "no place found")

	_, err = run(t, "-c", cfg, "compute", "--from", "Paris", "--speed", "100", "--range", "200")
	assert.ErrorContains(t, err, "[from to]")

	_, err = run(t, "-c", cfg, "compute", "--from", "Paris", "--to", "Lyon", "--distance", "10", "--speed", "100", "--range", "200")
	assert.ErrorContains(t, err, "[distance from]")

	_, err = run(t, "compute", "--speed", "100", "--range", "200")
	assert.ErrorContains(t, err, "at least one of the flags in the group [distance from] is required")
}

func TestCompute_FromToWithoutToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evtrip.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trip:\n  policy: strict\n"), 0o644))
	_, err := run(t, "-c", path, "compute", "--from", "Paris", "--to", "Lyon", "--speed", "100", "--range", "200")
	assert.ErrorContains(t, err, "token is required")
}

func TestCall_FromTo(t *testing.T) {
	cfg := newRoutingConfig(t, 250000)
	endpoint := newService(t)
	out, err := run(t, "-c", cfg, "call", "--endpoint", endpoint, "--from", "Paris", "--to", "Lyon", "--speed", "100", "--range", "200", "--recharge", "30")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "\n3\n"), out)
}

func TestGeocode(t *testing.T) {
	cfg := newRoutingConfig(t, 0)
	out, err := run(t, "-c", cfg, "geocode", "Paris")
	require.NoError(t, err)
	assert.Contains(t, out, `"name":"Paris, France"`)
	assert.Contains(t, out, `"lon":2.3522`)

	_, err = run(t, "-c", cfg, "geocode", "Atlantis")
	assert.ErrorContains(t, err, "no place found")

	_, err = run(t, "-c", cfg, "geocode")
	assert.Error(t, err)
}
