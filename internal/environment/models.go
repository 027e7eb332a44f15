package environment

import (
	"errors"
	"fmt"
	"time"
)

// DefaultAQI is substituted when the air-quality provider omits the current value.
const DefaultAQI = 50

// ErrUpstreamUnavailable is returned when a provider cannot be reached or
// returns data we cannot use.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// Coordinate is a point on the globe in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Key returns a canonical string key for this coordinate.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// WeatherReading is the weather half of an environmental reading.
type WeatherReading struct {
	ProviderName string
	Timestamp    time.Time
	TemperatureC float64
	HumidityPct  float64
}

// AirQualityReading is the air-quality half of an environmental reading.
type AirQualityReading struct {
	ProviderName string
	Timestamp    time.Time
	// AQI is the US EPA index, rounded.
	AQI int
	// Defaulted is true when the provider omitted the index and DefaultAQI was used.
	Defaulted bool
}

// Reading is the normalized environmental view used for risk scoring.
type Reading struct {
	Coordinate  Coordinate
	Timestamp   time.Time // newest provider observation, UTC
	Temperature float64
	Humidity    float64
	AQI         int

	// Providers contributing to this reading.
	Providers []ProviderContribution
}

// ProviderNames lists the providers behind the reading, weather first.
func (r Reading) ProviderNames() []string {
	names := make([]string, 0, len(r.Providers))
	for _, p := range r.Providers {
		names = append(names, p.ProviderName)
	}
	return names
}

// ProviderContribution describes data coming from a single provider.
type ProviderContribution struct {
	ProviderName string
	Timestamp    time.Time
}
