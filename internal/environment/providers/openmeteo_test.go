package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/health-risk-history/internal/environment"
)

var newDelhi = environment.Coordinate{Lat: 28.6139, Lon: 77.2090}

func testHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Second}
}

func serveJSON(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenMeteo_FetchWeather_Success(t *testing.T) {
	srv := serveJSON(t, `{"current":{"time":"2026-10-19T06:00","temperature_2m":31.4,"relative_humidity_2m":62}}`,
		func(r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "28.613900", q.Get("latitude"))
			assert.Equal(t, "77.209000", q.Get("longitude"))
			assert.Equal(t, "temperature_2m,relative_humidity_2m", q.Get("current"))
		})

	p := NewOpenMeteoProvider(testHTTPClient(), 0)
	p.baseURL = srv.URL

	r, err := p.FetchWeather(context.Background(), newDelhi)
	require.NoError(t, err)

	assert.Equal(t, "openmeteo", r.ProviderName)
	assert.Equal(t, 31.4, r.TemperatureC)
	assert.Equal(t, 62.0, r.HumidityPct)
	assert.Equal(t, time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC), r.Timestamp)
}

func TestOpenMeteo_FetchWeather_MissingFieldsIsUpstreamError(t *testing.T) {
	srv := serveJSON(t, `{"current":{"time":"2026-10-19T06:00","temperature_2m":20}}`, nil)

	p := NewOpenMeteoProvider(testHTTPClient(), 0)
	p.baseURL = srv.URL

	_, err := p.FetchWeather(context.Background(), newDelhi)
	require.Error(t, err)
	assert.ErrorIs(t, err, environment.ErrUpstreamUnavailable)
}

func TestOpenMeteo_FetchWeather_MalformedBody(t *testing.T) {
	srv := serveJSON(t, `not json`, nil)

	p := NewOpenMeteoProvider(testHTTPClient(), 0)
	p.baseURL = srv.URL

	_, err := p.FetchWeather(context.Background(), newDelhi)
	assert.ErrorIs(t, err, environment.ErrUpstreamUnavailable)
}

func TestOpenMeteo_FetchWeather_ServerErrorIsNotRetriedByDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(testHTTPClient(), 0)
	p.baseURL = srv.URL

	_, err := p.FetchWeather(context.Background(), newDelhi)
	assert.ErrorIs(t, err, environment.ErrUpstreamUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenMeteoAirQuality_RoundsIndex(t *testing.T) {
	srv := serveJSON(t, `{"current":{"time":"2026-10-19T06:00","us_aqi":152.6}}`, func(r *http.Request) {
		assert.Equal(t, "us_aqi", r.URL.Query().Get("current"))
	})

	p := NewOpenMeteoAirQualityProvider(testHTTPClient(), 0)
	p.baseURL = srv.URL

	r, err := p.FetchAirQuality(context.Background(), newDelhi)
	require.NoError(t, err)
	assert.Equal(t, 153, r.AQI)
	assert.False(t, r.Defaulted)
}

func TestOpenMeteoAirQuality_MissingIndexDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "null index", body: `{"current":{"time":"2026-10-19T06:00","us_aqi":null}}`},
		{name: "absent index", body: `{"current":{"time":"2026-10-19T06:00"}}`},
		{name: "absent current block", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveJSON(t, tt.body, nil)

			p := NewOpenMeteoAirQualityProvider(testHTTPClient(), 0)
			p.baseURL = srv.URL

			r, err := p.FetchAirQuality(context.Background(), newDelhi)
			require.NoError(t, err)
			assert.Equal(t, environment.DefaultAQI, r.AQI)
			assert.True(t, r.Defaulted)
		})
	}
}

func TestOpenMeteoAirQuality_ConnectionFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewOpenMeteoAirQualityProvider(testHTTPClient(), 0)
	p.baseURL = url

	_, err := p.FetchAirQuality(context.Background(), newDelhi)
	assert.ErrorIs(t, err, environment.ErrUpstreamUnavailable)
}

func TestDoRequestWithResilience_RetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":10,"relative_humidity_2m":40}}`))
	}))
	defer srv.Close()

	p := NewOpenMeteoProvider(testHTTPClient(), 1)
	p.baseURL = srv.URL
	p.httpCfg.Backoff.InitialInterval = time.Millisecond

	r, err := p.FetchWeather(context.Background(), newDelhi)
	require.NoError(t, err)
	assert.Equal(t, 10.0, r.TemperatureC)
	assert.Equal(t, int32(2), calls.Load())
}
