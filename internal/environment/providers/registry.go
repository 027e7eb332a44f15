package providers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/i474232898/health-risk-history/internal/environment"
)

// Keys accepted by NewWeatherProvider.
const (
	WeatherOpenMeteo   = "openmeteo"
	WeatherOpenWeather = "openweathermap"
	WeatherAPI         = "weatherapi"
)

// WeatherKeys holds the API keys of the providers that need one.
type WeatherKeys struct {
	OpenWeather string
	WeatherAPI  string
}

// NewWeatherProvider builds the weather provider selected by name.
func NewWeatherProvider(name string, client *http.Client, keys WeatherKeys, maxRetries int) (environment.WeatherProvider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", WeatherOpenMeteo:
		return NewOpenMeteoProvider(client, maxRetries), nil
	case WeatherOpenWeather:
		if keys.OpenWeather == "" {
			return nil, fmt.Errorf("OPENWEATHER_API_KEY is required for provider %q", name)
		}
		return NewOpenWeatherProvider(client, keys.OpenWeather, maxRetries), nil
	case WeatherAPI:
		if keys.WeatherAPI == "" {
			return nil, fmt.Errorf("WEATHERAPI_API_KEY is required for provider %q", name)
		}
		return NewWeatherAPIProvider(client, keys.WeatherAPI, maxRetries), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", name)
	}
}
