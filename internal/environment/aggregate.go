package environment

import "time"

// CombineReadings merges the weather and air-quality halves into one Reading.
// The newest provider timestamp wins; a zero timestamp falls back to now.
func CombineReadings(at Coordinate, w WeatherReading, aq AirQualityReading) Reading {
	ts := w.Timestamp
	if aq.Timestamp.After(ts) {
		ts = aq.Timestamp
	}
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return Reading{
		Coordinate:  at,
		Timestamp:   ts.UTC(),
		Temperature: w.TemperatureC,
		Humidity:    w.HumidityPct,
		AQI:         aq.AQI,
		Providers: []ProviderContribution{
			{ProviderName: w.ProviderName, Timestamp: w.Timestamp},
			{ProviderName: aq.ProviderName, Timestamp: aq.Timestamp},
		},
	}
}
