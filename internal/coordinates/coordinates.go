// Package coordinates resolves the user's approximate position and keeps the
// last known value in the key/value store.
package coordinates

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/store"
)

const (
	// StorageKey holds the last known coordinates as {"lat":..,"lon":..}.
	StorageKey = "user_coords"

	// LocateTimeout bounds a single geolocation read.
	LocateTimeout = 5 * time.Second

	precision = 5
)

// Coordinates is a latitude/longitude pair rounded to five decimals.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Round returns c rounded to five decimals.
func (c Coordinates) Round() Coordinates {
	return Coordinates{
		Lat: common.RoundTo(c.Lat, precision),
		Lon: common.RoundTo(c.Lon, precision),
	}
}

// Default is the fixed fallback position used when geolocation is unavailable.
var Default = Coordinates{Lat: 43.65107, Lon: -79.347015}

// Locator reads the raw device position.
type Locator interface {
	Name() string
	Locate(ctx context.Context) (Coordinates, error)
}

// Service performs geolocation reads and persists the last known position.
type Service struct {
	locator Locator
	store   store.Store
	logger  zerolog.Logger
	timeout time.Duration
}

// NewService creates a new Service.
func NewService(locator Locator, st store.Store, logger zerolog.Logger) *Service {
	return &Service{
		locator: locator,
		store:   st,
		logger:  logger.With().Str("component", "coordinates").Logger(),
		timeout: LocateTimeout,
	}
}

// Coords performs one geolocation read. It returns nil when the position is
// unavailable; the failure is logged, not returned.
func (s *Service) Coords(ctx context.Context) *Coordinates {
	if s.locator == nil {
		s.logger.Error().Msg("geolocation not supported: no locator configured")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.locator.Locate(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("locator", s.locator.Name()).Msg("error getting coords")
		return nil
	}

	coords := raw.Round()

	last := s.Last()
	if last == nil || *last != coords {
		s.logger.Info().Float64("lat", coords.Lat).Float64("lon", coords.Lon).Msg("coords changed, updating")
		if err := store.SetJSON(s.store, StorageKey, coords); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist coords")
		}
	}

	return &coords
}

// Last returns the last persisted coordinates, or nil.
func (s *Service) Last() *Coordinates {
	var c Coordinates
	err := store.GetJSON(s.store, StorageKey, &c)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("ignoring unreadable stored coords")
		}
		return nil
	}
	return &c
}
