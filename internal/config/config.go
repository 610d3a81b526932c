package config

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type AppConfig struct {
	Port        string        `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=trace debug info warn error"`
	LogPretty   bool          `env:"LOG_PRETTY" envDefault:"false"`

	AppVersion   string `env:"APP_VERSION" envDefault:"0.1.0" validate:"required"`
	ContactEmail string `env:"CONTACT_EMAIL" envDefault:"homie@example.com" validate:"omitempty,email"`

	// Storage backing the settings and the location cache.
	StorageDriver       string        `env:"STORAGE_DRIVER" envDefault:"memory" validate:"oneof=memory sqlite"`
	StoragePath         string        `env:"STORAGE_PATH" envDefault:"homie.db" validate:"required_if=StorageDriver sqlite"`
	StorageSyncInterval time.Duration `env:"STORAGE_SYNC_INTERVAL" envDefault:"2s" validate:"gt=0"`

	DefaultLat float64 `env:"DEFAULT_LAT" envDefault:"43.65107" validate:"gte=-90,lte=90"`
	DefaultLon float64 `env:"DEFAULT_LON" envDefault:"-79.347015" validate:"gte=-180,lte=180"`

	GeolocationSource string  `env:"GEOLOCATION_SOURCE" envDefault:"ipapi" validate:"oneof=static ipapi google gps"`
	StaticLat         float64 `env:"STATIC_LAT" envDefault:"43.65107" validate:"gte=-90,lte=90"`
	StaticLon         float64 `env:"STATIC_LON" envDefault:"-79.347015" validate:"gte=-180,lte=180"`
	IPAPIURL          string  `env:"IPAPI_URL" validate:"omitempty,url"`
	GoogleMapsAPIKey  string  `env:"GOOGLE_MAPS_API_KEY" validate:"required_if=GeolocationSource google"`
	GPSDevicePort     string  `env:"GPS_DEVICE_PORT" envDefault:"/dev/ttyUSB0" validate:"required_if=GeolocationSource gps"`
	GPSBaudRate       int     `env:"GPS_BAUD_RATE" envDefault:"9600" validate:"gt=0"`

	ReverseGeocoder      string `env:"REVERSE_GEOCODER" envDefault:"nominatim" validate:"oneof=nominatim google"`
	NominatimURL         string `env:"NOMINATIM_URL" validate:"omitempty,url"`
	GoogleGeocoderAPIKey string `env:"GOOGLE_GEOCODER_API_KEY" validate:"required_if=ReverseGeocoder google"`

	// WeatherProviders is tried in order; keyed providers without a key are skipped.
	WeatherProviders  []string `env:"WEATHER_PROVIDERS" envSeparator:"," envDefault:"openmeteo" validate:"min=1,dive,oneof=openmeteo openweather weatherapi"`
	OpenMeteoURL      string   `env:"OPEN_METEO_URL" validate:"omitempty,url"`
	OpenWeatherAPIKey string   `env:"OPENWEATHER_API_KEY"`
	WeatherAPIKey     string   `env:"WEATHERAPI_API_KEY"`

	QuoteSource   string `env:"QUOTE_SOURCE" envDefault:"local" validate:"oneof=local api"`
	QuoteAPIURL   string `env:"QUOTE_API_URL" validate:"omitempty,url"`
	QuotesFile    string `env:"QUOTES_FILE"`
	GreetingsFile string `env:"GREETINGS_FILE"`
	SuggestURL    string `env:"SUGGEST_URL" validate:"omitempty,url"`

	// WarmInterval of zero disables the cache warm-up job.
	WarmInterval time.Duration `env:"WARM_INTERVAL" envDefault:"30m" validate:"gte=0"`

	version *semver.Version
}

var validate = validator.New()

// Load reads configuration from the environment, after merging a .env file
// when one is present.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Err(err).Msg("no .env file loaded")
	}
	return parse(env.Options{})
}

// LoadFrom reads configuration from vars instead of the process environment.
func LoadFrom(vars map[string]string) (*AppConfig, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	v, err := semver.NewVersion(cfg.AppVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_VERSION %q: %w", cfg.AppVersion, err)
	}
	cfg.version = v

	return cfg, nil
}

// Version is the parsed APP_VERSION.
func (c *AppConfig) Version() *semver.Version {
	return c.version
}

// UserAgent identifies the app to upstream services that ask for it.
func (c *AppConfig) UserAgent() string {
	version := c.AppVersion
	if c.version != nil {
		version = c.version.String()
	}
	return fmt.Sprintf("homie-app/%s (contact: %s)", version, c.ContactEmail)
}
