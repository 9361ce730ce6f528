package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSource = "stub"

var testTime = time.Date(2024, 7, 14, 12, 0, 0, 0, time.UTC)

// --- mocks for decorator tests ---

type countingForecast struct {
	calls int
	err   error
}

func (c *countingForecast) Name() string { return testSource }

func (c *countingForecast) FetchForecast(_ context.Context, _ string) ([]domain.Observation, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	rain := 12.5
	return []domain.Observation{{Time: testTime, Condition: "Rain", TemperatureCelsius: 20, PrecipitationMm3h: &rain}}, nil
}

type countingOfficial struct {
	calls int
	err   error
}

func (c *countingOfficial) Name() string { return testSource }

func (c *countingOfficial) FetchOfficialAlerts(_ context.Context, _ string) ([]domain.RawOfficialAlert, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []domain.RawOfficialAlert{{Event: "Flood Warning", Severity: "Severe"}}, nil
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("store down")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("store down")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- ForecastFetcher tests ---

func TestForecastFetcher_CacheHit(t *testing.T) {
	inner := &countingForecast{}
	metrics := observability.NewMetricsForTesting()
	f := NewForecastFetcher(inner, NewMemoryStore(10, clockwork.NewFakeClock()), time.Minute, metrics, discardLogger())

	first, err := f.FetchForecast(context.Background(), "Austin")
	require.NoError(t, err)
	second, err := f.FetchForecast(context.Background(), "  AUSTIN ")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
	require.Len(t, second, 1)
	assert.True(t, first[0].Time.Equal(second[0].Time))
	require.NotNil(t, second[0].PrecipitationMm3h)
	assert.InDelta(t, 12.5, *second[0].PrecipitationMm3h, 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ProviderCache.WithLabelValues(testSource, "hit")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.ProviderCache.WithLabelValues(testSource, "miss")), 0)
}

func TestForecastFetcher_ExpiredEntryRefetches(t *testing.T) {
	clock := clockwork.NewFakeClock()
	inner := &countingForecast{}
	f := NewForecastFetcher(inner, NewMemoryStore(10, clock), time.Minute, observability.NewMetricsForTesting(), discardLogger())

	_, err := f.FetchForecast(context.Background(), "Austin")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = f.FetchForecast(context.Background(), "Austin")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestForecastFetcher_ErrorsNotCached(t *testing.T) {
	inner := &countingForecast{err: domain.ErrSourceUnavailable}
	f := NewForecastFetcher(inner, NewMemoryStore(10, nil), time.Minute, observability.NewMetricsForTesting(), discardLogger())

	_, err := f.FetchForecast(context.Background(), "Austin")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
	_, err = f.FetchForecast(context.Background(), "Austin")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)

	assert.Equal(t, 2, inner.calls)
}

func TestForecastFetcher_StoreFailureFallsThrough(t *testing.T) {
	inner := &countingForecast{}
	f := NewForecastFetcher(inner, failingStore{}, time.Minute, observability.NewMetricsForTesting(), discardLogger())

	obs, err := f.FetchForecast(context.Background(), "Austin")
	require.NoError(t, err)
	assert.Len(t, obs, 1)
	assert.Equal(t, testSource, f.Name())
}

// --- OfficialAlertFetcher tests ---

func TestOfficialAlertFetcher_CacheHit(t *testing.T) {
	inner := &countingOfficial{}
	f := NewOfficialAlertFetcher(inner, NewMemoryStore(10, nil), time.Minute, observability.NewMetricsForTesting(), discardLogger())

	_, err := f.FetchOfficialAlerts(context.Background(), "Austin")
	require.NoError(t, err)
	raws, err := f.FetchOfficialAlerts(context.Background(), "Austin")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	require.Len(t, raws, 1)
	assert.Equal(t, "Flood Warning", raws[0].Event)
	assert.Equal(t, "Severe", raws[0].Severity)
}

func TestOfficialAlertFetcher_DistinctLocations(t *testing.T) {
	inner := &countingOfficial{}
	f := NewOfficialAlertFetcher(inner, NewMemoryStore(10, nil), time.Minute, observability.NewMetricsForTesting(), discardLogger())

	_, _ = f.FetchOfficialAlerts(context.Background(), "Austin")
	_, _ = f.FetchOfficialAlerts(context.Background(), "Dallas")

	assert.Equal(t, 2, inner.calls)
}

func TestOfficialAlertFetcher_UnreachableRedisFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingOfficial{}
	f := NewOfficialAlertFetcher(inner, NewRedisStoreFromClient(client, "test"), time.Minute,
		observability.NewMetricsForTesting(), discardLogger())

	raws, err := f.FetchOfficialAlerts(context.Background(), "Austin")
	require.NoError(t, err)
	assert.Len(t, raws, 1)
	assert.Equal(t, 1, inner.calls)
}

func TestRedisStore_WrapKey(t *testing.T) {
	assert.Equal(t, "storm-alerts:forecast:x:austin", (&RedisStore{prefix: "storm-alerts"}).wrapKey("forecast:x:austin"))
	assert.Equal(t, "raw", (&RedisStore{}).wrapKey("raw"))
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "alerts:weatherapi:new york", cacheKey("alerts", "weatherapi", " New York "))
}
