package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.Equal(t, "ipapi", cfg.GeolocationSource)
	assert.Equal(t, "nominatim", cfg.ReverseGeocoder)
	assert.Equal(t, []string{"openmeteo"}, cfg.WeatherProviders)
	assert.Equal(t, "local", cfg.QuoteSource)
	assert.Equal(t, 43.65107, cfg.DefaultLat)
	assert.Equal(t, -79.347015, cfg.DefaultLon)
	assert.Equal(t, 30*time.Minute, cfg.WarmInterval)
	require.NotNil(t, cfg.Version())
	assert.Equal(t, "0.1.0", cfg.Version().String())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"PORT":                "9090",
		"STORAGE_DRIVER":      "sqlite",
		"STORAGE_PATH":        "/tmp/homie.db",
		"WEATHER_PROVIDERS":   "openweather,openmeteo",
		"OPENWEATHER_API_KEY": "k",
		"GEOLOCATION_SOURCE":  "static",
		"STATIC_LAT":          "51.5",
		"STATIC_LON":          "-0.12",
		"APP_VERSION":         "v1.2",
	})
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "/tmp/homie.db", cfg.StoragePath)
	assert.Equal(t, []string{"openweather", "openmeteo"}, cfg.WeatherProviders)
	assert.Equal(t, 51.5, cfg.StaticLat)
	assert.Equal(t, "1.2.0", cfg.Version().String())
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad driver":         {"STORAGE_DRIVER": "redis"},
		"bad provider":       {"WEATHER_PROVIDERS": "openmeteo,darksky"},
		"bad latitude":       {"DEFAULT_LAT": "91"},
		"google without key": {"GEOLOCATION_SOURCE": "google"},
		"geocoder no key":    {"REVERSE_GEOCODER": "google"},
		"bad version":        {"APP_VERSION": "banana"},
		"bad duration":       {"HTTP_TIMEOUT": "soon"},
		"bad email":          {"CONTACT_EMAIL": "nobody"},
		"bad log level":      {"LOG_LEVEL": "loud"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFrom(vars)
			assert.Error(t, err)
		})
	}
}

func TestUserAgent(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"APP_VERSION": "0.2.0", "CONTACT_EMAIL": "dev@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "homie-app/0.2.0 (contact: dev@example.com)", cfg.UserAgent())
}
