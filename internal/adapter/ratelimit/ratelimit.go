// Package ratelimit throttles outbound provider calls with token buckets.
package ratelimit

import (
	"context"
	"fmt"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	"golang.org/x/time/rate"
)

// ForecastFetcher wraps a domain.ForecastFetcher with rate limiting.
type ForecastFetcher struct {
	inner   domain.ForecastFetcher
	limiter *rate.Limiter
	metrics *observability.Metrics
}

// NewForecastFetcher allows rps requests per second (fractional values are
// fine) with bursts of up to burst requests.
func NewForecastFetcher(inner domain.ForecastFetcher, rps float64, burst int, metrics *observability.Metrics) *ForecastFetcher {
	return &ForecastFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: metrics,
	}
}

// Name returns the wrapped provider name.
func (f *ForecastFetcher) Name() string { return f.inner.Name() }

// FetchForecast waits for a token, then delegates.
func (f *ForecastFetcher) FetchForecast(ctx context.Context, location string) ([]domain.Observation, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		f.metrics.RateLimitRejected.WithLabelValues(f.inner.Name()).Inc()
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return f.inner.FetchForecast(ctx, location)
}

// OfficialAlertFetcher wraps a domain.OfficialAlertFetcher with rate limiting.
type OfficialAlertFetcher struct {
	inner   domain.OfficialAlertFetcher
	limiter *rate.Limiter
	metrics *observability.Metrics
}

// NewOfficialAlertFetcher allows rps requests per second with bursts of up
// to burst requests.
func NewOfficialAlertFetcher(inner domain.OfficialAlertFetcher, rps float64, burst int, metrics *observability.Metrics) *OfficialAlertFetcher {
	return &OfficialAlertFetcher{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: metrics,
	}
}

// Name returns the wrapped provider name.
func (f *OfficialAlertFetcher) Name() string { return f.inner.Name() }

// FetchOfficialAlerts waits for a token, then delegates.
func (f *OfficialAlertFetcher) FetchOfficialAlerts(ctx context.Context, location string) ([]domain.RawOfficialAlert, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		f.metrics.RateLimitRejected.WithLabelValues(f.inner.Name()).Inc()
		return nil, fmt.Errorf("rate limit wait canceled: %w", err)
	}
	return f.inner.FetchOfficialAlerts(ctx, location)
}
