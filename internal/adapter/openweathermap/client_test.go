package openweathermap

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/couchcryptid/storm-alerts-service/internal/domain"
	"github.com/couchcryptid/storm-alerts-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey           = "owm-test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

// Two periods out of order plus a repeated timestamp.
const forecastBody = `{
  "cod": "200",
  "list": [
    {"dt": 1720969200, "main": {"temp": 295.15}, "wind": {"speed": 20},
     "weather": [{"main": "Thunderstorm", "description": "thunderstorm with heavy rain"}],
     "rain": {"3h": 12.5}},
    {"dt": 1720958400, "main": {"temp": 311.15}, "wind": {"speed": 3},
     "weather": [{"main": "Clear", "description": "clear sky"}]},
    {"dt": 1720958400, "main": {"temp": 250}, "wind": {"speed": 1},
     "weather": [{"main": "Snow", "description": "duplicate slot"}]}
  ]
}`

func testClient(baseURL, key string) *Client {
	return NewClient(key, baseURL, 5*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchForecast_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "New York", r.URL.Query().Get("q"))
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, forecastBody)
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL, testKey).FetchForecast(context.Background(), "New York")
	require.NoError(t, err)
	require.Len(t, obs, 2)

	first := obs[0]
	assert.Equal(t, time.Unix(1720958400, 0).UTC(), first.Time)
	assert.Equal(t, "Clear", first.Condition)
	assert.InDelta(t, 38.0, first.TemperatureCelsius, 1e-9)
	assert.Nil(t, first.PrecipitationMm3h)

	second := obs[1]
	assert.Equal(t, "Thunderstorm", second.Condition)
	assert.Equal(t, "thunderstorm with heavy rain", second.Description)
	assert.InDelta(t, 22.0, second.TemperatureCelsius, 1e-9)
	assert.InDelta(t, 20.0, second.WindSpeedMetersPerSecond, 0)
	require.NotNil(t, second.PrecipitationMm3h)
	assert.InDelta(t, 12.5, *second.PrecipitationMm3h, 0)
}

func TestClient_FetchForecast_CoordinateLocation(t *testing.T) {
	tests := []struct {
		name     string
		location string
		wantQ    string
		wantLat  string
		wantLon  string
	}{
		{name: "coordinates", location: "30.27,-97.74", wantLat: "30.27", wantLon: "-97.74"},
		{name: "coordinates with space", location: "51.5, -0.12", wantLat: "51.5", wantLon: "-0.12"},
		{name: "city with comma", location: "Austin,US", wantQ: "Austin,US"},
		{name: "latitude out of range", location: "95,10", wantQ: "95,10"},
		{name: "city", location: "Austin", wantQ: "Austin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var query url.Values
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.Query()
				_, _ = io.WriteString(w, forecastBody)
			}))
			defer srv.Close()

			_, err := testClient(srv.URL, testKey).FetchForecast(context.Background(), tt.location)
			require.NoError(t, err)

			assert.Equal(t, testKey, query.Get("appid"))
			assert.Equal(t, tt.wantQ, query.Get("q"))
			assert.Equal(t, tt.wantLat, query.Get("lat"))
			assert.Equal(t, tt.wantLon, query.Get("lon"))
		})
	}
}

func TestClient_FetchForecast_FeedsAnalyzer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, forecastBody)
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL, testKey).FetchForecast(context.Background(), "Austin")
	require.NoError(t, err)

	alerts := domain.NewAnalyzer("").Analyze(obs)
	types := make([]string, 0, len(alerts))
	for _, a := range alerts {
		types = append(types, a.Type)
	}
	assert.Equal(t, []string{domain.TypeHeatWave, domain.TypeThunderstorm, domain.TypeHighWinds}, types)
}

func TestClient_FetchForecast_NoKey(t *testing.T) {
	_, err := testClient("http://127.0.0.1:0", "").FetchForecast(context.Background(), "Austin")
	require.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestClient_FetchForecast_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"cod":"404","message":"city not found"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, testKey).FetchForecast(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.NotErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestClient_FetchForecast_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, testKey).FetchForecast(context.Background(), "Austin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestClient_FetchForecast_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, forecastBody)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL, testKey).FetchForecast(ctx, "Austin")
	require.Error(t, err)
}

func TestClient_FetchForecast_EmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"list":[]}`)
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL, testKey).FetchForecast(context.Background(), "Austin")
	require.NoError(t, err)
	assert.Empty(t, obs)
}
