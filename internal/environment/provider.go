package environment

import (
	"context"
)

// WeatherProvider abstracts a source of current temperature and humidity
// (e.g. Open-Meteo, OpenWeatherMap, WeatherAPI).
type WeatherProvider interface {
	Name() string
	FetchWeather(ctx context.Context, at Coordinate) (WeatherReading, error)
}

// AirQualityProvider abstracts a source of the current US AQI.
type AirQualityProvider interface {
	Name() string
	FetchAirQuality(ctx context.Context, at Coordinate) (AirQualityReading, error)
}
