package domain

import "context"

// ForecastFetcher supplies time-ordered forecast observations for a location.
// Implementations return an error wrapping ErrSourceUnavailable when they
// are not configured.
type ForecastFetcher interface {
	Name() string
	FetchForecast(ctx context.Context, location string) ([]Observation, error)
}

// OfficialAlertFetcher supplies raw official alert records for a location.
type OfficialAlertFetcher interface {
	Name() string
	FetchOfficialAlerts(ctx context.Context, location string) ([]RawOfficialAlert, error)
}
