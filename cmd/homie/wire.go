package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/homie/internal/config"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/location"
	locproviders "github.com/i474232898/homie/internal/location/providers"
	"github.com/i474232898/homie/internal/quote"
	"github.com/i474232898/homie/internal/scheduler"
	"github.com/i474232898/homie/internal/store"
	"github.com/i474232898/homie/internal/weather"
	"github.com/i474232898/homie/internal/weather/providers"
)

// changeLogRetention bounds how long the SQLite change log is kept.
const changeLogRetention = time.Hour

// openStore returns the configured key/value store and the jobs it needs.
func openStore(cfg *config.AppConfig, lg zerolog.Logger) (store.Store, []scheduler.Job, func(), error) {
	switch cfg.StorageDriver {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.StoragePath, lg)
		if err != nil {
			return nil, nil, nil, err
		}
		jobs := []scheduler.Job{
			{
				Name:     "storage-sync",
				Interval: cfg.StorageSyncInterval,
				Run: func(ctx context.Context) error {
					_, err := s.Poll(ctx)
					return err
				},
			},
			{
				Name:     "storage-prune",
				Interval: time.Hour,
				Run: func(ctx context.Context) error {
					_, err := s.Prune(ctx, time.Now().Add(-changeLogRetention))
					return err
				},
			},
		}
		closeFn := func() {
			if err := s.Close(); err != nil {
				lg.Error().Err(err).Msg("failed to close storage")
			}
		}
		return s, jobs, closeFn, nil
	default:
		s := store.NewMemoryStore()
		return s, nil, s.Close, nil
	}
}

func newLocator(cfg *config.AppConfig, client *http.Client) (coordinates.Locator, error) {
	switch cfg.GeolocationSource {
	case "static":
		return coordinates.NewStaticLocator(cfg.StaticLat, cfg.StaticLon), nil
	case "google":
		g, err := coordinates.NewGoogleLocator(cfg.GoogleMapsAPIKey)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "gps":
		return coordinates.NewGPSLocator(cfg.GPSDevicePort, cfg.GPSBaudRate), nil
	case "ipapi":
		return coordinates.NewIPAPILocator(client, cfg.IPAPIURL), nil
	default:
		return nil, fmt.Errorf("unknown geolocation source %q", cfg.GeolocationSource)
	}
}

func newGeocoder(cfg *config.AppConfig, client *http.Client) location.ReverseGeocoder {
	if cfg.ReverseGeocoder == "google" {
		return locproviders.NewGoogle(cfg.GoogleGeocoderAPIKey)
	}
	return locproviders.NewNominatim(client, cfg.NominatimURL, cfg.UserAgent())
}

func newWeatherService(cfg *config.AppConfig, client *http.Client, fallback coordinates.Coordinates, lg zerolog.Logger) *weather.Service {
	var provs []weather.Provider
	for _, name := range cfg.WeatherProviders {
		switch name {
		case "openmeteo":
			provs = append(provs, providers.NewOpenMeteoProvider(client, cfg.OpenMeteoURL))
		case "openweather":
			if cfg.OpenWeatherAPIKey == "" {
				lg.Warn().Msg("openweather listed without OPENWEATHER_API_KEY; skipping")
				continue
			}
			provs = append(provs, providers.NewOpenWeatherProvider(client, cfg.OpenWeatherAPIKey))
		case "weatherapi":
			if cfg.WeatherAPIKey == "" {
				lg.Warn().Msg("weatherapi listed without WEATHERAPI_API_KEY; skipping")
				continue
			}
			provs = append(provs, providers.NewWeatherAPIProvider(client, cfg.WeatherAPIKey))
		}
	}
	return weather.NewService(provs, lg, fallback)
}

func newQuoteService(cfg *config.AppConfig, client *http.Client, lg zerolog.Logger) (*quote.Service, error) {
	if cfg.QuoteSource == "api" {
		return quote.NewService(quote.NewAPIProvider(client, cfg.QuoteAPIURL), lg), nil
	}
	quotes, err := quote.LoadQuotes(cfg.QuotesFile)
	if err != nil {
		return nil, err
	}
	return quote.NewService(quote.NewLocalProvider(quotes), lg), nil
}
