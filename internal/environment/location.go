package environment

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

// DefaultCoordinate is used for every user until per-user locations exist.
var DefaultCoordinate = Coordinate{Lat: 28.6139, Lon: 77.2090}

// LocationResolver decides which coordinate to fetch for a user.
type LocationResolver interface {
	Resolve(ctx context.Context, userID string) (Coordinate, error)
}

// FixedLocation resolves every user to the same coordinate.
type FixedLocation Coordinate

// Resolve implements LocationResolver.
func (f FixedLocation) Resolve(_ context.Context, _ string) (Coordinate, error) {
	return Coordinate(f), nil
}

// geocodeMu guards geocoder.ApiKey, which the library keeps as a package variable.
var geocodeMu sync.Mutex

// geocode is swapped in tests.
var geocode = func(apiKey string, addr geocoder.Address) (geocoder.Location, error) {
	geocodeMu.Lock()
	defer geocodeMu.Unlock()
	geocoder.ApiKey = apiKey
	return geocoder.Geocoding(addr)
}

// GeocodeCity looks up the coordinate of a city using the Google geocoding API.
func GeocodeCity(city, country, apiKey string) (Coordinate, error) {
	if apiKey == "" {
		return Coordinate{}, fmt.Errorf("geocoding requires an api key")
	}
	if city == "" {
		return Coordinate{}, fmt.Errorf("geocoding requires a city")
	}

	loc, err := geocode(apiKey, geocoder.Address{
		City:    city,
		Country: country,
	})
	if err != nil {
		return Coordinate{}, fmt.Errorf("geocode %s,%s: %w", city, country, err)
	}

	return Coordinate{Lat: loc.Latitude, Lon: loc.Longitude}, nil
}
