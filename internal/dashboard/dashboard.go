// Package dashboard assembles every panel of the new-tab page in one call.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/homie/internal/clock"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/greeting"
	"github.com/i474232898/homie/internal/location"
	"github.com/i474232898/homie/internal/quote"
	"github.com/i474232898/homie/internal/search"
	"github.com/i474232898/homie/internal/settings"
	"github.com/i474232898/homie/internal/weather"
)

var ErrLocationUnavailable = errors.New("location unavailable")

type CoordinatesSource interface {
	Coords(ctx context.Context) *coordinates.Coordinates
}

type LocationSource interface {
	Lookup(ctx context.Context, coords *coordinates.Coordinates) *location.Location
}

type WeatherSource interface {
	Current(ctx context.Context, coords *coordinates.Coordinates, unit weather.Unit) *weather.Current
}

type QuoteSource interface {
	Random(ctx context.Context) *quote.Quote
}

type SettingsSource interface {
	Get() settings.Settings
}

// Dashboard is the page content. Nil panels are rendered as placeholders.
type Dashboard struct {
	Settings    settings.Settings        `json:"settings"`
	Greeting    string                   `json:"greeting"`
	Clock       clock.DateTime           `json:"clock"`
	Coordinates *coordinates.Coordinates `json:"coordinates"`
	Weather     *weather.Current         `json:"weather"`
	Location    *location.Location       `json:"location"`
	Quote       *quote.Quote             `json:"quote"`
	SearchURL   string                   `json:"searchUrl,omitempty"`
	GeneratedAt time.Time                `json:"generatedAt"`
}

type Deps struct {
	Settings    SettingsSource
	Greetings   *greeting.Service
	Coordinates CoordinatesSource
	Location    LocationSource
	Weather     WeatherSource
	Quotes      QuoteSource
}

type Service struct {
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(deps Deps, logger zerolog.Logger) *Service {
	return &Service{
		deps:   deps,
		logger: logger.With().Str("component", "dashboard").Logger(),
		now:    time.Now,
	}
}

// WithClock replaces the time source, mostly for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Build resolves coordinates first, then fetches weather, location and the
// quote concurrently.
func (s *Service) Build(ctx context.Context) Dashboard {
	now := s.now()
	cfg := s.deps.Settings.Get()

	d := Dashboard{
		Settings:    cfg,
		Greeting:    greeting.Personalize(s.deps.Greetings.Greeting(now), cfg.Username),
		Clock:       clock.Format(now, cfg.ClockFormat),
		GeneratedAt: now.UTC(),
	}
	if cfg.SearchToggled {
		d.SearchURL = search.BaseURL + "?q="
	}

	d.Coordinates = s.deps.Coordinates.Coords(ctx)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		d.Weather = s.deps.Weather.Current(ctx, d.Coordinates, cfg.Unit)
	}()
	go func() {
		defer wg.Done()
		d.Location = s.deps.Location.Lookup(ctx, d.Coordinates)
	}()
	if cfg.QuoteToggled && s.deps.Quotes != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Quote = s.deps.Quotes.Random(ctx)
		}()
	}
	wg.Wait()

	s.logger.Debug().
		Bool("weather", d.Weather != nil).
		Bool("location", d.Location != nil).
		Bool("quote", d.Quote != nil).
		Msg("dashboard built")

	return d
}

// Warm resolves the coordinates and looks up their location so the next
// Build hits the cache.
func (s *Service) Warm(ctx context.Context) error {
	coords := s.deps.Coordinates.Coords(ctx)
	if s.deps.Location.Lookup(ctx, coords) == nil {
		return ErrLocationUnavailable
	}
	return nil
}
