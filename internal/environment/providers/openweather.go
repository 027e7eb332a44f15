package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/health-risk-history/internal/environment"
)

// OpenWeatherProvider implements environment.WeatherProvider for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string, maxRetries int) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: NewHTTPClientConfig(client, maxRetries),
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) FetchWeather(ctx context.Context, at environment.Coordinate) (environment.WeatherReading, error) {
	if p.apiKey == "" {
		return environment.WeatherReading{}, fmt.Errorf("%w: openweather api key is not configured", environment.ErrUpstreamUnavailable)
	}

	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lat", formatCoord(at.Lat))
	values.Set("lon", formatCoord(at.Lon))

	var payload struct {
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp     *float64 `json:"temp"`
			Humidity *float64 `json:"humidity"`
		} `json:"main"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, newGetRequest(p.baseURL, values), &payload); err != nil {
		return environment.WeatherReading{}, err
	}

	if payload.Main == nil || payload.Main.Temp == nil || payload.Main.Humidity == nil {
		return environment.WeatherReading{}, fmt.Errorf("%w: %w: main temperature or humidity missing",
			environment.ErrUpstreamUnavailable, errMalformed)
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	return environment.WeatherReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: *payload.Main.Temp,
		HumidityPct:  *payload.Main.Humidity,
	}, nil
}
