package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
)

// Name identifies this provider in reports, metrics, and cache keys.
const Name = "weatherapi"

// Client fetches official alerts from the WeatherAPI.com forecast endpoint.
// It implements domain.OfficialAlertFetcher.
type Client struct {
	apiKey     string
	days       int
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a WeatherAPI.com client requesting days of forecast
// alongside alerts.
func NewClient(apiKey, baseURL string, days int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		days:   days,
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

// FetchOfficialAlerts returns the raw alert records for a location in
// provider order. It fails with domain.ErrSourceUnavailable when no API key
// is configured.
func (c *Client) FetchOfficialAlerts(ctx context.Context, location string) ([]domain.RawOfficialAlert, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%s: %w", Name, domain.ErrSourceUnavailable)
	}

	params := url.Values{
		"key":    {c.apiKey},
		"q":      {location},
		"days":   {strconv.Itoa(c.days)},
		"alerts": {"yes"},
		"aqi":    {"no"},
	}
	u := c.baseURL + "/forecast.json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.SourceFetchDuration.WithLabelValues(Name).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("alerts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("weatherapi API error: status %d: code %d: %s", resp.StatusCode, apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("weatherapi API error: status %d: %s", resp.StatusCode, body)
	}

	raws, err := DecodeAlerts(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("official alerts fetched", "location", location, "count", len(raws))
	return raws, nil
}

// DecodeAlerts reads the alerts.alert block of a forecast response body.
// A response without alerts yields an empty, non-nil slice.
func DecodeAlerts(r io.Reader) ([]domain.RawOfficialAlert, error) {
	var forecast response
	if err := json.NewDecoder(r).Decode(&forecast); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	raws := forecast.Alerts.Alert
	if raws == nil {
		raws = []domain.RawOfficialAlert{}
	}
	return raws, nil
}

// WeatherAPI.com response types. Only the alert block is decoded.

type response struct {
	Alerts struct {
		Alert []domain.RawOfficialAlert `json:"alert"`
	} `json:"alerts"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
