package agromet

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

// Metrics served by the historical and forecast daily endpoint families.
const (
	MetricAirTemp  = "air_temp"
	MetricPrecip   = "precip"
	MetricSoilTemp = "soil_temp"
)

const (
	historicalDailyPath   = "/v1.2/historical/daily"
	forecastDailyPath     = "/v1.2/forecast/daily"
	currentConditionsPath = "/v1.2/current/conditions"
)

// Query carries the caller-facing parameters of the documented endpoints.
// Values are passed to the service as given; the remote validation stays
// authoritative for ranges, window ordering and unit codes.
type Query struct {
	// Start and End bound the requested window as Unix timestamps in
	// seconds. Ignored by CurrentConditions.
	Start int64
	End   int64

	Latitude  float64
	Longitude float64

	// Location, when set, is sent verbatim instead of the Latitude and
	// Longitude pair and may carry several comma-separated coordinates.
	Location string

	// UnitCode selects the unit system and is omitted from the request
	// when empty, leaving the choice to the service.
	UnitCode string
}

// params renders the query for the wire. The window fields are only
// included for the windowed endpoint families.
func (q Query) params(withWindow bool) map[string]string {
	params := map[string]string{
		"location": q.location(),
	}
	if withWindow {
		params["start"] = strconv.FormatInt(q.Start, 10)
		params["end"] = strconv.FormatInt(q.End, 10)
	}
	if q.UnitCode != "" {
		params["unitcode"] = q.UnitCode
	}
	return params
}

func (q Query) location() string {
	if q.Location != "" {
		return q.Location
	}
	return formatCoord(q.Latitude) + ", " + formatCoord(q.Longitude)
}

// formatCoord renders a coordinate with the fewest digits that survive a
// round trip, so 40.71 stays "40.71".
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// HistoricalDaily fetches one daily historical metric over the query
// window. The named wrappers below fix the metric segment.
func (c *Client) HistoricalDaily(ctx context.Context, metric string, q Query) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   historicalDailyPath + "/" + metric,
		Params: q.params(true),
	})
}

// HistoricalDailyAirTemp returns daily air temperature readings between the
// start and end timestamps.
func (c *Client) HistoricalDailyAirTemp(ctx context.Context, q Query) (json.RawMessage, error) {
	return c.HistoricalDaily(ctx, MetricAirTemp, q)
}

// HistoricalDailyPrecip returns daily precipitation readings between the
// start and end timestamps.
func (c *Client) HistoricalDailyPrecip(ctx context.Context, q Query) (json.RawMessage, error) {
	return c.HistoricalDaily(ctx, MetricPrecip, q)
}

// HistoricalDailySoilTemp returns daily soil temperature readings between
// the start and end timestamps.
func (c *Client) HistoricalDailySoilTemp(ctx context.Context, q Query) (json.RawMessage, error) {
	return c.HistoricalDaily(ctx, MetricSoilTemp, q)
}

// ForecastDaily fetches one daily forecast metric over the query window.
func (c *Client) ForecastDaily(ctx context.Context, metric string, q Query) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   forecastDailyPath + "/" + metric,
		Params: q.params(true),
	})
}

// ForecastDailyAirTemp returns daily air temperature forecasts between the
// start and end timestamps.
func (c *Client) ForecastDailyAirTemp(ctx context.Context, q Query) (json.RawMessage, error) {
	return c.ForecastDaily(ctx, MetricAirTemp, q)
}

// CurrentConditions returns the latest observed conditions for the query
// location. The window fields of q are ignored.
func (c *Client) CurrentConditions(ctx context.Context, q Query) (json.RawMessage, error) {
	return c.Do(ctx, Request{
		Method: http.MethodGet,
		Path:   currentConditionsPath,
		Params: q.params(false),
	})
}
