// Package fixture serves recorded provider responses from disk. It backs the
// genmock and validate commands so they run the real decoding and
// aggregation code without network access.
package fixture

import (
	"context"
	"fmt"
	"os"

	"github.com/couchcryptid/storm-alerts-service/internal/adapter/openweathermap"
	"github.com/couchcryptid/storm-alerts-service/internal/adapter/weatherapi"
	"github.com/couchcryptid/storm-alerts-service/internal/domain"
)

// Forecast replays a recorded OpenWeatherMap forecast response for every
// location.
type Forecast struct {
	path string
}

// NewForecast returns a Forecast reading from path.
func NewForecast(path string) *Forecast {
	return &Forecast{path: path}
}

// Name returns the provider name of the recorded response.
func (f *Forecast) Name() string { return openweathermap.Name }

// FetchForecast decodes the recorded response. The location is ignored.
func (f *Forecast) FetchForecast(_ context.Context, _ string) ([]domain.Observation, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open forecast fixture: %w", err)
	}
	defer file.Close()

	return openweathermap.DecodeForecast(file)
}

// OfficialAlerts replays a recorded WeatherAPI.com response for every
// location.
type OfficialAlerts struct {
	path string
}

// NewOfficialAlerts returns an OfficialAlerts reading from path.
func NewOfficialAlerts(path string) *OfficialAlerts {
	return &OfficialAlerts{path: path}
}

// Name returns the provider name of the recorded response.
func (f *OfficialAlerts) Name() string { return weatherapi.Name }

// FetchOfficialAlerts decodes the recorded response. The location is ignored.
func (f *OfficialAlerts) FetchOfficialAlerts(_ context.Context, _ string) ([]domain.RawOfficialAlert, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open alerts fixture: %w", err)
	}
	defer file.Close()

	return weatherapi.DecodeAlerts(file)
}
