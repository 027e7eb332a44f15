package providers

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/health-risk-history/internal/environment"
)

// Open-Meteo reports current values with a minute-resolution local timestamp.
const openMeteoTimeLayout = "2006-01-02T15:04"

// OpenMeteoProvider implements environment.WeatherProvider using the Open-Meteo forecast API.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, maxRetries int) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: NewHTTPClientConfig(client, maxRetries),
		circuit: newCircuitBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchWeather(ctx context.Context, at environment.Coordinate) (environment.WeatherReading, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(at.Lat))
	values.Set("longitude", formatCoord(at.Lon))
	values.Set("current", "temperature_2m,relative_humidity_2m")
	values.Set("timezone", "GMT")

	var payload struct {
		Current *struct {
			Time               string   `json:"time"`
			Temperature2m      *float64 `json:"temperature_2m"`
			RelativeHumidity2m *float64 `json:"relative_humidity_2m"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, newGetRequest(p.baseURL, values), &payload); err != nil {
		return environment.WeatherReading{}, err
	}

	if payload.Current == nil || payload.Current.Temperature2m == nil || payload.Current.RelativeHumidity2m == nil {
		return environment.WeatherReading{}, fmt.Errorf("%w: %w: current temperature or humidity missing",
			environment.ErrUpstreamUnavailable, errMalformed)
	}

	return environment.WeatherReading{
		ProviderName: p.name,
		Timestamp:    parseOpenMeteoTime(payload.Current.Time),
		TemperatureC: *payload.Current.Temperature2m,
		HumidityPct:  *payload.Current.RelativeHumidity2m,
	}, nil
}

// OpenMeteoAirQualityProvider implements environment.AirQualityProvider using the
// Open-Meteo air-quality API.
type OpenMeteoAirQualityProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoAirQualityProvider(client *http.Client, maxRetries int) *OpenMeteoAirQualityProvider {
	return &OpenMeteoAirQualityProvider{
		name:    "openmeteo-airquality",
		baseURL: "https://air-quality-api.open-meteo.com/v1/air-quality",
		httpCfg: NewHTTPClientConfig(client, maxRetries),
		circuit: newCircuitBreaker("openmeteo-airquality"),
	}
}

func (p *OpenMeteoAirQualityProvider) Name() string {
	return p.name
}

// FetchAirQuality returns the current US AQI. A missing index is not an error;
// DefaultAQI is used instead.
func (p *OpenMeteoAirQualityProvider) FetchAirQuality(ctx context.Context, at environment.Coordinate) (environment.AirQualityReading, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(at.Lat))
	values.Set("longitude", formatCoord(at.Lon))
	values.Set("current", "us_aqi")
	values.Set("timezone", "GMT")

	var payload struct {
		Current *struct {
			Time  string   `json:"time"`
			USAQI *float64 `json:"us_aqi"`
		} `json:"current"`
	}

	if err := getJSON(ctx, p.httpCfg, p.circuit, newGetRequest(p.baseURL, values), &payload); err != nil {
		return environment.AirQualityReading{}, err
	}

	reading := environment.AirQualityReading{
		ProviderName: p.name,
		AQI:          environment.DefaultAQI,
		Defaulted:    true,
	}
	if payload.Current == nil {
		reading.Timestamp = time.Now().UTC()
		return reading, nil
	}

	reading.Timestamp = parseOpenMeteoTime(payload.Current.Time)
	if payload.Current.USAQI != nil {
		reading.AQI = int(math.Round(*payload.Current.USAQI))
		reading.Defaulted = false
	}
	return reading, nil
}

func parseOpenMeteoTime(s string) time.Time {
	ts, err := time.Parse(openMeteoTimeLayout, s)
	if err != nil {
		return time.Now().UTC()
	}
	return ts.UTC()
}
