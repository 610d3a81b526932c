package weather

import (
	"context"

	"github.com/i474232898/homie/internal/coordinates"
)

// Reading is a single provider's answer before rounding.
type Reading struct {
	ProviderName string

	Temperature float64
	FeelsLike   float64
	Unit        string
	Code        *int
	Status      string
	Condition   Condition
}

// Provider abstracts a weather data source (e.g. Open-Meteo, OpenWeatherMap, WeatherAPI).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, c coordinates.Coordinates, unit Unit) (Reading, error)
}
