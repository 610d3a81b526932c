package weather

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/coordinates"
)

// Service asks providers for the current weather, in order, until one answers.
type Service struct {
	providers []Provider
	logger    zerolog.Logger
	fallback  coordinates.Coordinates
}

// NewService creates a new Service. fallback is used when no coordinates are known.
func NewService(providers []Provider, logger zerolog.Logger, fallback coordinates.Coordinates) *Service {
	return &Service{
		providers: providers,
		logger:    logger.With().Str("component", "weather").Logger(),
		fallback:  fallback,
	}
}

// Current returns the weather at coords, or at the fallback position when
// coords is nil. It returns nil when no provider succeeded.
func (s *Service) Current(ctx context.Context, coords *coordinates.Coordinates, unit Unit) *Current {
	if !unit.Valid() {
		unit = Celsius
	}

	c := s.fallback
	if coords != nil {
		c = *coords
	}

	if len(s.providers) == 0 {
		s.logger.Error().Msg("no weather providers configured")
		return nil
	}

	for _, p := range s.providers {
		r, err := p.Fetch(ctx, c, unit)
		if err != nil {
			// Log and continue with the next provider.
			s.logger.Warn().Err(err).Str("provider", p.Name()).Msg("weather fetch failed")
			continue
		}
		return fromReading(r, unit)
	}

	s.logger.Error().Str("coords", fmt.Sprintf("%.5f,%.5f", c.Lat, c.Lon)).Msg("no provider returned weather")
	return nil
}

func fromReading(r Reading, unit Unit) *Current {
	symbol := r.Unit
	if symbol == "" {
		symbol = unit.Symbol()
	}

	status := r.Status
	if status == "" && r.Code != nil {
		status = StatusForCode(*r.Code)
	}

	cond := r.Condition
	if cond == "" {
		cond = ConditionUnknown
	}

	return &Current{
		Temperature:   common.RoundHalfUp(r.Temperature),
		FeelsLike:     common.RoundHalfUp(r.FeelsLike),
		Unit:          symbol,
		WeatherStatus: status,
		WeatherCode:   r.Code,
		Condition:     cond,
		Provider:      r.ProviderName,
	}
}
