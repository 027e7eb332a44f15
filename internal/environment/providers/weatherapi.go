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

// WeatherAPIProvider implements environment.WeatherProvider for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(client *http.Client, apiKey string, maxRetries int) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/current.json",
		httpCfg: NewHTTPClientConfig(client, maxRetries),
		circuit: newCircuitBreaker("weatherapi"),
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) FetchWeather(ctx context.Context, at environment.Coordinate) (environment.WeatherReading, error) {
	if p.apiKey == "" {
		return environment.WeatherReading{}, fmt.Errorf("%w: weatherapi api key is not configured", environment.ErrUpstreamUnavailable)
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%f,%f", at.Lat, at.Lon))

	var payload struct {
		Current *struct {
			LastUpdatedEpoch int64    `json:"last_updated_epoch"`
			TempC            *float64 `json:"temp_c"`
			Humidity         *float64 `json:"humidity"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, newGetRequest(p.baseURL, values), &payload); err != nil {
		return environment.WeatherReading{}, err
	}

	if payload.Current == nil || payload.Current.TempC == nil || payload.Current.Humidity == nil {
		return environment.WeatherReading{}, fmt.Errorf("%w: %w: current temperature or humidity missing",
			environment.ErrUpstreamUnavailable, errMalformed)
	}

	ts := time.Now().UTC()
	if payload.Current.LastUpdatedEpoch > 0 {
		ts = time.Unix(payload.Current.LastUpdatedEpoch, 0).UTC()
	}

	return environment.WeatherReading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: *payload.Current.TempC,
		HumidityPct:  *payload.Current.Humidity,
	}, nil
}
