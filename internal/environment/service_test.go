package environment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/health-risk-history/internal/observability"
)

type fakeWeather struct {
	reading WeatherReading
	err     error
}

func (f fakeWeather) Name() string { return "fake-weather" }

func (f fakeWeather) FetchWeather(context.Context, Coordinate) (WeatherReading, error) {
	return f.reading, f.err
}

type fakeAirQuality struct {
	reading AirQualityReading
	err     error
}

func (f fakeAirQuality) Name() string { return "fake-aq" }

func (f fakeAirQuality) FetchAirQuality(context.Context, Coordinate) (AirQualityReading, error) {
	return f.reading, f.err
}

func TestClientFetch_CombinesReadings(t *testing.T) {
	ts := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)
	c := NewClient(
		fakeWeather{reading: WeatherReading{ProviderName: "fake-weather", Timestamp: ts, TemperatureC: 38, HumidityPct: 85}},
		fakeAirQuality{reading: AirQualityReading{ProviderName: "fake-aq", Timestamp: ts, AQI: 160}},
		observability.NewMetricsForTesting(),
		zap.NewNop(),
	)

	r, err := c.Fetch(context.Background(), DefaultCoordinate)
	require.NoError(t, err)

	assert.Equal(t, DefaultCoordinate, r.Coordinate)
	assert.Equal(t, 38.0, r.Temperature)
	assert.Equal(t, 85.0, r.Humidity)
	assert.Equal(t, 160, r.AQI)
	assert.Equal(t, ts, r.Timestamp)
	assert.Equal(t, []string{"fake-weather", "fake-aq"}, r.ProviderNames())
}

func TestClientFetch_WeatherFailureIsUpstreamUnavailable(t *testing.T) {
	c := NewClient(
		fakeWeather{err: errors.New("connection refused")},
		fakeAirQuality{reading: AirQualityReading{AQI: 40}},
		nil,
		zap.NewNop(),
	)

	_, err := c.Fetch(context.Background(), DefaultCoordinate)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Contains(t, err.Error(), "fake-weather")
}

func TestClientFetch_AirQualityFailureIsUpstreamUnavailable(t *testing.T) {
	c := NewClient(
		fakeWeather{reading: WeatherReading{TemperatureC: 20, HumidityPct: 50}},
		fakeAirQuality{err: ErrUpstreamUnavailable},
		nil,
		zap.NewNop(),
	)

	_, err := c.Fetch(context.Background(), DefaultCoordinate)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestClientFetch_MissingProviders(t *testing.T) {
	c := NewClient(nil, nil, nil, zap.NewNop())

	_, err := c.Fetch(context.Background(), DefaultCoordinate)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestFixedLocation_Resolve(t *testing.T) {
	r := FixedLocation(DefaultCoordinate)

	got, err := r.Resolve(context.Background(), "any-user")
	require.NoError(t, err)
	assert.Equal(t, DefaultCoordinate, got)
}
