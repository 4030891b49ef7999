package agromet

import (
	"context"
	"net/http"
	"testing"
)

func TestHistoricalDailyAirTempRequestShape(t *testing.T) {
	transport := &fakeTransport{resp: okResponse(`{"air_temp":[]}`)}
	c := New(WithAppID("id"), WithAppKey("key"), WithHTTPClient(transport))

	q := Query{
		Start:     1577836800,
		End:       1577923200,
		Latitude:  40.71,
		Longitude: -74.01,
	}
	payload, err := c.HistoricalDailyAirTemp(context.Background(), q)
	if err != nil {
		t.Fatalf("HistoricalDailyAirTemp: %v", err)
	}
	if string(payload) != `{"air_temp":[]}` {
		t.Fatalf("unexpected payload %q", payload)
	}
	if transport.method != http.MethodGet {
		t.Fatalf("expected GET, got %q", transport.method)
	}
	if transport.url != DefaultHost+"/v1.2/historical/daily/air_temp" {
		t.Fatalf("unexpected URL %q", transport.url)
	}
	want := map[string]string{
		"start":    "1577836800",
		"end":      "1577923200",
		"location": "40.71, -74.01",
		"app_id":   "id",
		"app_key":  "key",
	}
	if len(transport.query) != len(want) {
		t.Fatalf("unexpected query %v, want %v", transport.query, want)
	}
	for k, v := range want {
		if transport.query[k] != v {
			t.Fatalf("query[%q] = %q, want %q", k, transport.query[k], v)
		}
	}
	if _, ok := transport.query["unitcode"]; ok {
		t.Fatalf("unitcode must be omitted when unset")
	}
}

func TestQueryUnitCodeIncludedWhenSet(t *testing.T) {
	transport := &fakeTransport{resp: okResponse(`{}`)}
	c := New(WithHTTPClient(transport))

	q := Query{Start: 1, End: 2, Latitude: 3, Longitude: 4, UnitCode: "si-std"}
	if _, err := c.HistoricalDailyAirTemp(context.Background(), q); err != nil {
		t.Fatalf("HistoricalDailyAirTemp: %v", err)
	}
	if got := transport.query["unitcode"]; got != "si-std" {
		t.Fatalf("expected unitcode si-std, got %q", got)
	}
}

func TestQueryLocationOverridesCoordinates(t *testing.T) {
	transport := &fakeTransport{resp: okResponse(`{}`)}
	c := New(WithHTTPClient(transport))

	q := Query{Start: 1, End: 2, Latitude: 9, Longitude: 9, Location: "40.71, -74.01, 41.88, -87.63"}
	if _, err := c.HistoricalDailyAirTemp(context.Background(), q); err != nil {
		t.Fatalf("HistoricalDailyAirTemp: %v", err)
	}
	if got := transport.query["location"]; got != "40.71, -74.01, 41.88, -87.63" {
		t.Fatalf("expected the verbatim location string, got %q", got)
	}
}

func TestHistoricalDailyMetricPaths(t *testing.T) {
	cases := []struct {
		call func(*Client, context.Context, Query) error
		path string
	}{
		{func(c *Client, ctx context.Context, q Query) error {
			_, err := c.HistoricalDailyPrecip(ctx, q)
			return err
		}, "/v1.2/historical/daily/precip"},
		{func(c *Client, ctx context.Context, q Query) error {
			_, err := c.HistoricalDailySoilTemp(ctx, q)
			return err
		}, "/v1.2/historical/daily/soil_temp"},
		{func(c *Client, ctx context.Context, q Query) error {
			_, err := c.HistoricalDaily(ctx, "dew_point", q)
			return err
		}, "/v1.2/historical/daily/dew_point"},
		{func(c *Client, ctx context.Context, q Query) error {
			_, err := c.ForecastDailyAirTemp(ctx, q)
			return err
		}, "/v1.2/forecast/daily/air_temp"},
	}
	for _, tc := range cases {
		transport := &fakeTransport{resp: okResponse(`{}`)}
		c := New(WithHTTPClient(transport))
		if err := tc.call(c, context.Background(), Query{Start: 1, End: 2}); err != nil {
			t.Fatalf("%s: %v", tc.path, err)
		}
		if transport.url != DefaultHost+tc.path {
			t.Fatalf("expected URL for %s, got %q", tc.path, transport.url)
		}
	}
}

func TestCurrentConditionsOmitsWindow(t *testing.T) {
	transport := &fakeTransport{resp: okResponse(`{}`)}
	c := New(WithHTTPClient(transport))

	q := Query{Start: 1577836800, End: 1577923200, Latitude: 40.71, Longitude: -74.01}
	if _, err := c.CurrentConditions(context.Background(), q); err != nil {
		t.Fatalf("CurrentConditions: %v", err)
	}
	if transport.url != DefaultHost+"/v1.2/current/conditions" {
		t.Fatalf("unexpected URL %q", transport.url)
	}
	if _, ok := transport.query["start"]; ok {
		t.Fatalf("current conditions must not carry a window start")
	}
	if _, ok := transport.query["end"]; ok {
		t.Fatalf("current conditions must not carry a window end")
	}
	if got := transport.query["location"]; got != "40.71, -74.01" {
		t.Fatalf("expected the combined coordinate pair, got %q", got)
	}
}

func TestTolerant404YieldsNilSeries(t *testing.T) {
	transport := &fakeTransport{resp: &fakeResponse{code: http.StatusNotFound, status: "404 Not Found"}}
	c := New(WithHTTPClient(transport), WithFailurePolicy(PolicyTolerant))

	payload, err := c.HistoricalDailyAirTemp(context.Background(), Query{Start: 1, End: 2})
	if err != nil {
		t.Fatalf("expected the 404 downgraded, got %v", err)
	}
	if payload != nil {
		t.Fatalf("expected nil payload, got %q", payload)
	}
}

func TestFormatCoord(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{40.71, "40.71"},
		{-74.01, "-74.01"},
		{0, "0"},
		{45.5, "45.5"},
		{-0.125, "-0.125"},
	}
	for _, tc := range cases {
		if got := formatCoord(tc.in); got != tc.want {
			t.Fatalf("formatCoord(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
