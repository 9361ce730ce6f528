package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingForecast struct{ calls int }

func (c *countingForecast) Name() string { return "forecast-stub" }

func (c *countingForecast) FetchForecast(_ context.Context, _ string) ([]domain.Observation, error) {
	c.calls++
	return []domain.Observation{{Condition: "Clear"}}, nil
}

type countingOfficial struct{ calls int }

func (c *countingOfficial) Name() string { return "official-stub" }

func (c *countingOfficial) FetchOfficialAlerts(_ context.Context, _ string) ([]domain.RawOfficialAlert, error) {
	c.calls++
	return []domain.RawOfficialAlert{{Event: "Flood Warning"}}, nil
}

func TestForecastFetcher_BurstPassesThrough(t *testing.T) {
	inner := &countingForecast{}
	f := NewForecastFetcher(inner, 1, 3, observability.NewMetricsForTesting())

	for range 3 {
		obs, err := f.FetchForecast(context.Background(), "Austin")
		require.NoError(t, err)
		assert.Len(t, obs, 1)
	}
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "forecast-stub", f.Name())
}

func TestForecastFetcher_WaitCanceled(t *testing.T) {
	inner := &countingForecast{}
	metrics := observability.NewMetricsForTesting()
	// One token per minute: the second call must wait past the deadline.
	f := NewForecastFetcher(inner, 1.0/60, 1, metrics)

	_, err := f.FetchForecast(context.Background(), "Austin")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.FetchForecast(ctx, "Austin")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit wait canceled")
	assert.Equal(t, 1, inner.calls)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RateLimitRejected.WithLabelValues("forecast-stub")), 0)
}

func TestOfficialAlertFetcher_Delegates(t *testing.T) {
	inner := &countingOfficial{}
	f := NewOfficialAlertFetcher(inner, 10, 1, observability.NewMetricsForTesting())

	raws, err := f.FetchOfficialAlerts(context.Background(), "Austin")
	require.NoError(t, err)
	require.Len(t, raws, 1)
	assert.Equal(t, "Flood Warning", raws[0].Event)
	assert.Equal(t, "official-stub", f.Name())
}

func TestOfficialAlertFetcher_CanceledContext(t *testing.T) {
	inner := &countingOfficial{}
	f := NewOfficialAlertFetcher(inner, 1.0/60, 1, observability.NewMetricsForTesting())

	_, err := f.FetchOfficialAlerts(context.Background(), "Austin")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.FetchOfficialAlerts(ctx, "Austin")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
