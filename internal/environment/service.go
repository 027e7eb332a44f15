package environment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/i474232898/health-risk-history/internal/observability"
)

// Client fetches the weather and air-quality halves of a reading concurrently
// and combines them.
type Client struct {
	weather    WeatherProvider
	airQuality AirQualityProvider
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewClient creates a new Client.
func NewClient(weather WeatherProvider, airQuality AirQualityProvider, metrics *observability.Metrics, logger *zap.Logger) *Client {
	return &Client{
		weather:    weather,
		airQuality: airQuality,
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch returns the current environmental reading at the given coordinate.
// Both provider calls must succeed; there is no retry at this level.
func (c *Client) Fetch(ctx context.Context, at Coordinate) (Reading, error) {
	if c.weather == nil || c.airQuality == nil {
		return Reading{}, fmt.Errorf("%w: providers not configured", ErrUpstreamUnavailable)
	}

	var (
		wg                sync.WaitGroup
		weather           WeatherReading
		airQuality        AirQualityReading
		weatherErr, aqErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		start := time.Now()
		weather, weatherErr = c.weather.FetchWeather(ctx, at)
		c.observe(c.weather.Name(), start, weatherErr)
	}()
	go func() {
		defer wg.Done()
		start := time.Now()
		airQuality, aqErr = c.airQuality.FetchAirQuality(ctx, at)
		c.observe(c.airQuality.Name(), start, aqErr)
	}()
	wg.Wait()

	if weatherErr != nil {
		return Reading{}, upstreamError(c.weather.Name(), weatherErr)
	}
	if aqErr != nil {
		return Reading{}, upstreamError(c.airQuality.Name(), aqErr)
	}

	if airQuality.Defaulted {
		c.logger.Debug("air quality index missing; using default",
			zap.String("coordinate", at.Key()),
			zap.Int("aqi", DefaultAQI),
		)
	}

	return CombineReadings(at, weather, airQuality), nil
}

func (c *Client) observe(provider string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.UpstreamRequests.WithLabelValues(provider, outcome).Inc()
	c.metrics.UpstreamDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

func upstreamError(provider string, err error) error {
	if errors.Is(err, ErrUpstreamUnavailable) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	return fmt.Errorf("%s: %w: %v", provider, ErrUpstreamUnavailable, err)
}
