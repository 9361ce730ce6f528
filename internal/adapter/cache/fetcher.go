// Package cache memoizes provider responses per location.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
)

// Store is a byte-oriented key/value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ForecastFetcher caches successful forecast fetches. Errors are never
// cached, so an unavailable provider is retried on the next request.
type ForecastFetcher struct {
	inner   domain.ForecastFetcher
	store   Store
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewForecastFetcher creates a cache decorator around a forecast provider.
func NewForecastFetcher(inner domain.ForecastFetcher, store Store, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *ForecastFetcher {
	return &ForecastFetcher{inner: inner, store: store, ttl: ttl, metrics: metrics, logger: logger}
}

// Name returns the wrapped provider name.
func (f *ForecastFetcher) Name() string { return f.inner.Name() }

// FetchForecast serves a cached forecast when present and caches successful fetches otherwise.
func (f *ForecastFetcher) FetchForecast(ctx context.Context, location string) ([]domain.Observation, error) {
	key := cacheKey("forecast", f.inner.Name(), location)

	var obs []domain.Observation
	if lookup(ctx, f.store, key, &obs, f.inner.Name(), f.metrics, f.logger) {
		return obs, nil
	}

	obs, err := f.inner.FetchForecast(ctx, location)
	if err != nil {
		return nil, err
	}
	store(ctx, f.store, key, obs, f.ttl, f.logger)
	return obs, nil
}

// OfficialAlertFetcher caches successful official alert fetches.
type OfficialAlertFetcher struct {
	inner   domain.OfficialAlertFetcher
	store   Store
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewOfficialAlertFetcher creates a cache decorator around an alert provider.
func NewOfficialAlertFetcher(inner domain.OfficialAlertFetcher, store Store, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *OfficialAlertFetcher {
	return &OfficialAlertFetcher{inner: inner, store: store, ttl: ttl, metrics: metrics, logger: logger}
}

// Name returns the wrapped provider name.
func (f *OfficialAlertFetcher) Name() string { return f.inner.Name() }

// FetchOfficialAlerts serves cached alerts when present and caches successful fetches otherwise.
func (f *OfficialAlertFetcher) FetchOfficialAlerts(ctx context.Context, location string) ([]domain.RawOfficialAlert, error) {
	key := cacheKey("alerts", f.inner.Name(), location)

	var raws []domain.RawOfficialAlert
	if lookup(ctx, f.store, key, &raws, f.inner.Name(), f.metrics, f.logger) {
		return raws, nil
	}

	raws, err := f.inner.FetchOfficialAlerts(ctx, location)
	if err != nil {
		return nil, err
	}
	store(ctx, f.store, key, raws, f.ttl, f.logger)
	return raws, nil
}

// cacheKey folds case and surrounding space so "Austin" and " austin " share an entry.
func cacheKey(kind, source, location string) string {
	return kind + ":" + source + ":" + strings.ToLower(strings.TrimSpace(location))
}

// lookup decodes a cached value into dst. Store and decode failures count
// as misses.
func lookup(ctx context.Context, s Store, key string, dst any, source string, metrics *observability.Metrics, logger *slog.Logger) bool {
	data, ok, err := s.Get(ctx, key)
	if err != nil {
		logger.Warn("provider cache get failed", "key", key, "error", err)
	}
	if ok && err == nil {
		if err := json.Unmarshal(data, dst); err == nil {
			metrics.ProviderCache.WithLabelValues(source, "hit").Inc()
			return true
		}
		logger.Warn("provider cache entry undecodable", "key", key)
	}
	metrics.ProviderCache.WithLabelValues(source, "miss").Inc()
	return false
}

func store(ctx context.Context, s Store, key string, value any, ttl time.Duration, logger *slog.Logger) {
	data, err := json.Marshal(value)
	if err != nil {
		logger.Warn("provider cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("provider cache set failed", "key", key, "error", err)
	}
}
