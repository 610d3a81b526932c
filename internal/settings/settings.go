// Package settings holds the user's dashboard preferences and keeps them in
// step with the key/value store.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/i474232898/homie/internal/store"
	"github.com/i474232898/homie/internal/weather"
)

// Storage keys.
const (
	KeyUnit          = "temp_unit"
	KeyClockFormat   = "clockFormat"
	KeyUsername      = "username"
	KeyDarkToggled   = "darkToggled"
	KeySearchToggled = "searchToggled"
	KeyQuoteToggled  = "quoteToggled"
)

type ClockFormat string

const (
	Clock12 ClockFormat = "12"
	Clock24 ClockFormat = "24"
)

type Settings struct {
	Unit          weather.Unit `json:"unit" validate:"oneof=celsius fahrenheit"`
	ClockFormat   ClockFormat  `json:"clockFormat" validate:"oneof=12 24"`
	Username      string       `json:"username" validate:"max=64"`
	DarkToggled   bool         `json:"darkToggled"`
	SearchToggled bool         `json:"searchToggled"`
	QuoteToggled  bool         `json:"quoteToggled"`
}

// Defaults are used for any key that is missing or unreadable.
var Defaults = Settings{
	Unit:          weather.Celsius,
	ClockFormat:   Clock24,
	SearchToggled: true,
	QuoteToggled:  true,
}

// Patch is a partial update; nil fields are left alone.
type Patch struct {
	Unit          *weather.Unit `json:"unit,omitempty" validate:"omitempty,oneof=celsius fahrenheit"`
	ClockFormat   *ClockFormat  `json:"clockFormat,omitempty" validate:"omitempty,oneof=12 24"`
	Username      *string       `json:"username,omitempty" validate:"omitempty,max=64"`
	DarkToggled   *bool         `json:"darkToggled,omitempty"`
	SearchToggled *bool         `json:"searchToggled,omitempty"`
	QuoteToggled  *bool         `json:"quoteToggled,omitempty"`
}

var ErrInvalid = errors.New("invalid settings")

var validate = validator.New()

// Store is the in-memory settings snapshot backed by a key/value store.
type Store struct {
	kv     store.Store
	logger zerolog.Logger

	// writeMu orders setters so persisted values follow memory.
	writeMu sync.Mutex

	mu  sync.RWMutex
	cur Settings

	obsMu     sync.Mutex
	nextObs   int
	observers map[int]func(Settings)
}

// New loads settings from kv, falling back to Defaults per key.
func New(kv store.Store, logger zerolog.Logger) *Store {
	s := &Store{
		kv:        kv,
		logger:    logger.With().Str("component", "settings").Logger(),
		observers: make(map[int]func(Settings)),
	}
	s.cur = s.load()
	return s
}

func (s *Store) load() Settings {
	out := Defaults

	if v, ok := s.read(KeyUnit); ok {
		if u := weather.Unit(v); u.Valid() {
			out.Unit = u
		}
	}
	if v, ok := s.read(KeyClockFormat); ok && ClockFormat(v) == Clock12 {
		out.ClockFormat = Clock12
	}
	if v, ok := s.read(KeyUsername); ok {
		out.Username = v
	}
	out.DarkToggled = s.readBool(KeyDarkToggled, out.DarkToggled)
	out.SearchToggled = s.readBool(KeySearchToggled, out.SearchToggled)
	out.QuoteToggled = s.readBool(KeyQuoteToggled, out.QuoteToggled)

	return out
}

func (s *Store) read(key string) (string, bool) {
	v, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read setting")
		}
		return "", false
	}
	return v, true
}

func (s *Store) readBool(key string, def bool) bool {
	v, ok := s.read(key)
	if !ok {
		return def
	}
	b, ok := parseBool(v)
	if !ok {
		s.logger.Warn().Str("key", key).Str("value", v).Msg("ignoring malformed toggle")
		return def
	}
	return b
}

func parseBool(raw string) (bool, bool) {
	var b bool
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return false, false
	}
	return b, true
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

func (s *Store) SetUnit(u weather.Unit) error {
	_, err := s.Update(Patch{Unit: &u})
	return err
}

func (s *Store) SetClockFormat(f ClockFormat) error {
	_, err := s.Update(Patch{ClockFormat: &f})
	return err
}

func (s *Store) SetUsername(name string) error {
	_, err := s.Update(Patch{Username: &name})
	return err
}

func (s *Store) SetDarkToggled(on bool) error {
	_, err := s.Update(Patch{DarkToggled: &on})
	return err
}

// ToggleSearch flips the search panel flag and returns the new value.
func (s *Store) ToggleSearch() (bool, error) {
	return s.toggle(func(c Settings) (*bool, Patch) {
		v := !c.SearchToggled
		return &v, Patch{SearchToggled: &v}
	})
}

// ToggleQuote flips the quote panel flag and returns the new value.
func (s *Store) ToggleQuote() (bool, error) {
	return s.toggle(func(c Settings) (*bool, Patch) {
		v := !c.QuoteToggled
		return &v, Patch{QuoteToggled: &v}
	})
}

// ToggleDark flips dark mode and returns the new value.
func (s *Store) ToggleDark() (bool, error) {
	return s.toggle(func(c Settings) (*bool, Patch) {
		v := !c.DarkToggled
		return &v, Patch{DarkToggled: &v}
	})
}

func (s *Store) toggle(flip func(Settings) (*bool, Patch)) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	v, p := flip(s.Get())
	_, err := s.update(p)
	return *v, err
}

// Update validates p, applies it in memory and persists every changed key.
func (s *Store) Update(p Patch) (Settings, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.update(p)
}

func (s *Store) update(p Patch) (Settings, error) {
	if err := validate.Struct(p); err != nil {
		return s.Get(), fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.mu.Lock()
	prev := s.cur
	next := prev
	if p.Unit != nil {
		next.Unit = *p.Unit
	}
	if p.ClockFormat != nil {
		next.ClockFormat = *p.ClockFormat
	}
	if p.Username != nil {
		next.Username = *p.Username
	}
	if p.DarkToggled != nil {
		next.DarkToggled = *p.DarkToggled
	}
	if p.SearchToggled != nil {
		next.SearchToggled = *p.SearchToggled
	}
	if p.QuoteToggled != nil {
		next.QuoteToggled = *p.QuoteToggled
	}
	s.cur = next
	s.mu.Unlock()

	if next == prev {
		return next, nil
	}

	var errs []error
	for key, value := range changedKeys(prev, next) {
		if err := s.kv.Set(key, value); err != nil {
			s.logger.Error().Err(err).Str("key", key).Msg("failed to persist setting")
			errs = append(errs, fmt.Errorf("persist %s: %w", key, err))
		}
	}

	s.notify(next)
	return next, errors.Join(errs...)
}

func changedKeys(prev, next Settings) map[string]string {
	out := make(map[string]string)
	if prev.Unit != next.Unit {
		out[KeyUnit] = string(next.Unit)
	}
	if prev.ClockFormat != next.ClockFormat {
		out[KeyClockFormat] = string(next.ClockFormat)
	}
	if prev.Username != next.Username {
		out[KeyUsername] = next.Username
	}
	if prev.DarkToggled != next.DarkToggled {
		out[KeyDarkToggled] = formatBool(next.DarkToggled)
	}
	if prev.SearchToggled != next.SearchToggled {
		out[KeySearchToggled] = formatBool(next.SearchToggled)
	}
	if prev.QuoteToggled != next.QuoteToggled {
		out[KeyQuoteToggled] = formatBool(next.QuoteToggled)
	}
	return out
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// OnChange registers fn to run after every applied change.
func (s *Store) OnChange(fn func(Settings)) (cancel func()) {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()

	s.nextObs++
	id := s.nextObs
	s.observers[id] = fn

	return func() {
		s.obsMu.Lock()
		delete(s.observers, id)
		s.obsMu.Unlock()
	}
}

func (s *Store) notify(cur Settings) {
	s.obsMu.Lock()
	fns := make([]func(Settings), 0, len(s.observers))
	for _, fn := range s.observers {
		fns = append(fns, fn)
	}
	s.obsMu.Unlock()

	for _, fn := range fns {
		fn(cur)
	}
}

// Watch applies changes announced by n. Only recognized keys with valid
// values are taken; they are not written back.
func (s *Store) Watch(n store.Notifier) (unsubscribe func()) {
	return n.Subscribe(s.apply)
}

func (s *Store) apply(e store.Event) {
	if e.Deleted {
		return
	}

	s.mu.Lock()
	prev := s.cur
	next := prev
	switch e.Key {
	case KeyUnit:
		if u := weather.Unit(e.NewValue); u.Valid() {
			next.Unit = u
		}
	case KeyClockFormat:
		if f := ClockFormat(e.NewValue); f == Clock12 || f == Clock24 {
			next.ClockFormat = f
		}
	case KeyUsername:
		if e.NewValue != "" {
			next.Username = e.NewValue
		}
	case KeyDarkToggled:
		if b, ok := parseBool(e.NewValue); ok {
			next.DarkToggled = b
		}
	case KeySearchToggled:
		if b, ok := parseBool(e.NewValue); ok {
			next.SearchToggled = b
		}
	case KeyQuoteToggled:
		if b, ok := parseBool(e.NewValue); ok {
			next.QuoteToggled = b
		}
	}
	s.cur = next
	s.mu.Unlock()

	if next != prev {
		s.logger.Debug().Str("key", e.Key).Msg("applied setting from another writer")
		s.notify(next)
	}
}
