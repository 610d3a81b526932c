// Package location turns coordinates into a city and state/province using a
// reverse geocoder. Results are cached in the key/value store for 24 hours
// per 4-decimal coordinate bucket, and upstream calls pass through a single
// process-wide rate gate of one request per second.
package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/i474232898/homie/internal/common"
	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/store"
)

const (
	// CacheTTL is the maximum age of a cached location.
	CacheTTL = 24 * time.Hour

	// MinRequestInterval is the minimum spacing between reverse geocoding calls.
	MinRequestInterval = time.Second

	// FetchTimeout bounds one shared upstream lookup, independent of its callers.
	FetchTimeout = 30 * time.Second

	cacheKeyPrefix = "location_"
	keyPrecision   = 4
)

// Location is what the dashboard shows for the current position.
type Location struct {
	City             string `json:"city"`
	StateProvince    string `json:"stateProvince"`
	LocationDisabled bool   `json:"locationDisabled"`
}

// CachedLocation is the stored form of a Location. Timestamp is in Unix milliseconds.
type CachedLocation struct {
	City             string `json:"city"`
	StateProvince    string `json:"stateProvince"`
	LocationDisabled bool   `json:"locationDisabled"`
	Timestamp        int64  `json:"timestamp"`
}

// Place is a reverse geocoding result.
type Place struct {
	City          string
	StateProvince string
}

// ReverseGeocoder resolves coordinates to a place.
type ReverseGeocoder interface {
	Name() string
	Reverse(ctx context.Context, c coordinates.Coordinates) (Place, error)
}

// Service looks up locations with caching and rate limiting.
type Service struct {
	geocoder ReverseGeocoder
	store    store.Store
	logger   zerolog.Logger

	limiter  *rate.Limiter
	inflight     singleflight.Group
	fetchTimeout time.Duration
	now          func() time.Time
	fallback     coordinates.Coordinates
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for cache age checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMinInterval changes the spacing enforced between upstream calls.
func WithMinInterval(d time.Duration) Option {
	return func(s *Service) { s.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// WithFetchTimeout changes the bound on a shared upstream lookup.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) { s.fetchTimeout = d }
}

// WithFallback sets the position used when no coordinates are given.
func WithFallback(c coordinates.Coordinates) Option {
	return func(s *Service) { s.fallback = c }
}

// NewService creates a new Service.
func NewService(geocoder ReverseGeocoder, st store.Store, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		geocoder: geocoder,
		store:    st,
		logger:   logger.With().Str("component", "location").Logger(),
		limiter:      rate.NewLimiter(rate.Every(MinRequestInterval), 1),
		fetchTimeout: FetchTimeout,
		now:          time.Now,
		fallback:     coordinates.Default,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CacheKey derives the storage key for c from its 4-decimal rounding.
func CacheKey(c coordinates.Coordinates) string {
	lat := strconv.FormatFloat(common.RoundTo(c.Lat, keyPrecision), 'f', keyPrecision, 64)
	lon := strconv.FormatFloat(common.RoundTo(c.Lon, keyPrecision), 'f', keyPrecision, 64)
	return cacheKeyPrefix + lat + "," + lon
}

// Lookup returns the location for coords, or for the fallback position when
// coords is nil. It returns nil when the location cannot be determined.
func (s *Service) Lookup(ctx context.Context, coords *coordinates.Coordinates) *Location {
	disabled := coords == nil
	c := s.fallback
	if coords != nil {
		c = *coords
	}

	key := CacheKey(c)
	if cached, ok := s.cached(key); ok {
		s.logger.Debug().Str("key", key).Msg("location cache hit")
		return &Location{
			City:             cached.City,
			StateProvince:    cached.StateProvince,
			LocationDisabled: disabled,
		}
	}

	// The shared flight outlives any single caller; each caller only waits
	// on its own context.
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		// A lookup that finished since the check above may have filled the cache.
		if cached, ok := s.cached(key); ok {
			return Place{City: cached.City, StateProvince: cached.StateProvince}, nil
		}
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fctx, key, c, disabled)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		s.logger.Debug().Err(ctx.Err()).Str("key", key).Msg("stopped waiting for location lookup")
		return nil
	}
	if res.Err != nil {
		s.logger.Error().Err(res.Err).Str("key", key).Msg("location lookup failed")
		return nil
	}
	if res.Shared {
		s.logger.Debug().Str("key", key).Msg("joined in-flight location lookup")
	}

	place := res.Val.(Place)
	return &Location{
		City:             place.City,
		StateProvince:    place.StateProvince,
		LocationDisabled: disabled,
	}
}

// cached returns the unexpired entry for key. Expired or unreadable entries are removed.
func (s *Service) cached(key string) (CachedLocation, bool) {
	var entry CachedLocation
	err := store.GetJSON(s.store, key, &entry)
	if errors.Is(err, store.ErrNotFound) {
		return CachedLocation{}, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("dropping unreadable cache entry")
		s.evict(key)
		return CachedLocation{}, false
	}

	age := s.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= CacheTTL {
		s.logger.Debug().Str("key", key).Dur("age", age).Msg("location cache entry expired")
		s.evict(key)
		return CachedLocation{}, false
	}
	return entry, true
}

func (s *Service) evict(key string) {
	if err := s.store.Remove(key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to evict cache entry")
	}
}

func (s *Service) fetch(ctx context.Context, key string, c coordinates.Coordinates, disabled bool) (Place, error) {
	if s.geocoder == nil {
		return Place{}, errors.New("no reverse geocoder configured")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Place{}, fmt.Errorf("rate gate: %w", err)
	}

	place, err := s.geocoder.Reverse(ctx, c)
	if err != nil {
		return Place{}, fmt.Errorf("%s reverse geocode: %w", s.geocoder.Name(), err)
	}

	entry := CachedLocation{
		City:             place.City,
		StateProvince:    place.StateProvince,
		LocationDisabled: disabled,
		Timestamp:        s.now().UnixMilli(),
	}
	if err := store.SetJSON(s.store, key, entry); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to cache location")
	}

	return place, nil
}
