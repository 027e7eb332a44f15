package providers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWeatherProvider(t *testing.T) {
	client := testHTTPClient()

	p, err := NewWeatherProvider("", client, WeatherKeys{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "openmeteo", p.Name())

	p, err = NewWeatherProvider("OpenWeatherMap", client, WeatherKeys{OpenWeather: "k"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "openweathermap", p.Name())

	p, err = NewWeatherProvider("weatherapi", client, WeatherKeys{WeatherAPI: "k"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "weatherapi", p.Name())

	_, err = NewWeatherProvider("weatherapi", client, WeatherKeys{}, 0)
	assert.Error(t, err)

	_, err = NewWeatherProvider("darksky", client, WeatherKeys{}, 0)
	assert.Error(t, err)
}

func TestOpenWeather_FetchWeather(t *testing.T) {
	srv := serveJSON(t, `{"dt":1760853600,"main":{"temp":-2.5,"humidity":91}}`, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "28.613900", q.Get("lat"))
	})

	p := NewOpenWeatherProvider(testHTTPClient(), "secret", 0)
	p.baseURL = srv.URL

	r, err := p.FetchWeather(context.Background(), newDelhi)
	require.NoError(t, err)
	assert.Equal(t, -2.5, r.TemperatureC)
	assert.Equal(t, 91.0, r.HumidityPct)
	assert.Equal(t, int64(1760853600), r.Timestamp.Unix())
}

func TestWeatherAPI_FetchWeather(t *testing.T) {
	srv := serveJSON(t, `{"current":{"last_updated_epoch":1760853600,"temp_c":36.1,"humidity":25}}`, func(r *http.Request) {
		assert.Equal(t, "28.613900,77.209000", r.URL.Query().Get("q"))
	})

	p := NewWeatherAPIProvider(testHTTPClient(), "secret", 0)
	p.baseURL = srv.URL

	r, err := p.FetchWeather(context.Background(), newDelhi)
	require.NoError(t, err)
	assert.Equal(t, 36.1, r.TemperatureC)
	assert.Equal(t, 25.0, r.HumidityPct)
}
