package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
)

// Name identifies this provider in reports, metrics, and cache keys.
const Name = "openweathermap"

// Client fetches 5-day / 3-hour forecasts from the OpenWeatherMap API.
// It implements domain.ForecastFetcher.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap forecast client.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return Name }

// FetchForecast returns the time-ordered forecast for a location, converted
// to Celsius and m/s. It fails with domain.ErrSourceUnavailable when no API
// key is configured.
func (c *Client) FetchForecast(ctx context.Context, location string) ([]domain.Observation, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", Name, domain.ErrSourceUnavailable)
	}

	params := url.Values{"appid": {c.apiKey}}
	if lat, lon, ok := parseCoordinates(location); ok {
		params.Set("lat", lat)
		params.Set("lon", lon)
	} else {
		params.Set("q", location)
	}
	u := c.baseURL + "/forecast?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.SourceFetchDuration.WithLabelValues(Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openweathermap API error: status %d: %s", resp.StatusCode, body)
	}

	obs, err := DecodeForecast(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("forecast fetched", "location", location, "periods", len(obs))
	return obs, nil
}

// parseCoordinates recognizes a "lat,lon" location. The q parameter only
// resolves city names, so coordinates must go out as lat and lon.
func parseCoordinates(location string) (lat, lon string, ok bool) {
	latStr, lonStr, found := strings.Cut(location, ",")
	if !found {
		return "", "", false
	}
	latStr, lonStr = strings.TrimSpace(latStr), strings.TrimSpace(lonStr)

	latVal, err := strconv.ParseFloat(latStr, 64)
	if err != nil || math.IsNaN(latVal) || latVal < -90 || latVal > 90 {
		return "", "", false
	}
	lonVal, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || math.IsNaN(lonVal) || lonVal < -180 || lonVal > 180 {
		return "", "", false
	}
	return latStr, lonStr, true
}

// DecodeForecast reads a forecast response body into time-ordered
// observations.
func DecodeForecast(r io.Reader) ([]domain.Observation, error) {
	var forecast response
	if err := json.NewDecoder(r).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	obs := make([]domain.Observation, 0, len(forecast.List))
	for _, p := range forecast.List {
		obs = append(obs, p.toObservation())
	}
	return domain.OrderObservations(obs), nil
}

// OpenWeatherMap API response types.

type response struct {
	List []period `json:"list"`
}

type period struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"` // Kelvin when no units parameter is sent
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s
	} `json:"wind"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Rain *struct {
		ThreeHour *float64 `json:"3h"`
	} `json:"rain,omitempty"`
}

func (p period) toObservation() domain.Observation {
	o := domain.Observation{
		Time:                     time.Unix(p.Dt, 0).UTC(),
		TemperatureCelsius:       domain.KelvinToCelsius(p.Main.Temp),
		WindSpeedMetersPerSecond: p.Wind.Speed,
	}
	if len(p.Weather) > 0 {
		o.Condition = p.Weather[0].Main
		o.Description = p.Weather[0].Description
	}
	if p.Rain != nil && p.Rain.ThreeHour != nil {
		mm := *p.Rain.ThreeHour
		o.PrecipitationMm3h = &mm
	}
	return o
}
