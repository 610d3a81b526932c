package dashboard

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/homie/internal/coordinates"
	"github.com/i474232898/homie/internal/greeting"
	"github.com/i474232898/homie/internal/location"
	"github.com/i474232898/homie/internal/quote"
	"github.com/i474232898/homie/internal/settings"
	"github.com/i474232898/homie/internal/store"
	"github.com/i474232898/homie/internal/weather"
)

type fakeCoords struct{ c *coordinates.Coordinates }

func (f fakeCoords) Coords(context.Context) *coordinates.Coordinates { return f.c }

type fakeLocation struct {
	got   *coordinates.Coordinates
	calls int32
	loc   *location.Location
}

func (f *fakeLocation) Lookup(_ context.Context, c *coordinates.Coordinates) *location.Location {
	atomic.AddInt32(&f.calls, 1)
	f.got = c
	return f.loc
}

type fakeWeather struct {
	unit weather.Unit
	cur  *weather.Current
}

func (f *fakeWeather) Current(_ context.Context, _ *coordinates.Coordinates, unit weather.Unit) *weather.Current {
	f.unit = unit
	return f.cur
}

type fakeQuotes struct {
	calls int32
	q     *quote.Quote
}

func (f *fakeQuotes) Random(context.Context) *quote.Quote {
	atomic.AddInt32(&f.calls, 1)
	return f.q
}

var morning = []greeting.Period{{Range: greeting.Range{Start: 0, End: 24}, Messages: []string{"Good morning, {{name}}!"}}}

func fixedNow() time.Time {
	return time.Date(2024, time.January, 15, 14, 30, 0, 0, time.Local)
}

func newService(t *testing.T, kv store.Store, loc *fakeLocation, w *fakeWeather, q *fakeQuotes, coords *coordinates.Coordinates) (*Service, *settings.Store) {
	t.Helper()
	st := settings.New(kv, zerolog.Nop())
	svc := NewService(Deps{
		Settings:    st,
		Greetings:   greeting.NewService(morning),
		Coordinates: fakeCoords{c: coords},
		Location:    loc,
		Weather:     w,
		Quotes:      q,
	}, zerolog.Nop()).WithClock(fixedNow)
	return svc, st
}

func TestBuildComposesPanels(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(settings.KeyUsername, "John"))
	require.NoError(t, kv.Set(settings.KeyUnit, "fahrenheit"))
	require.NoError(t, kv.Set(settings.KeyClockFormat, "12"))

	coords := &coordinates.Coordinates{Lat: 1, Lon: 2}
	loc := &fakeLocation{loc: &location.Location{City: "Toronto", StateProvince: "Ontario"}}
	w := &fakeWeather{cur: &weather.Current{Temperature: 68}}
	q := &fakeQuotes{q: &quote.Quote{Text: "t", Author: "a"}}

	svc, _ := newService(t, kv, loc, w, q, coords)
	d := svc.Build(context.Background())

	assert.Equal(t, "Good morning, John!", d.Greeting)
	assert.Equal(t, "02:30", d.Clock.Time)
	assert.Equal(t, "Monday, January 15", d.Clock.Date)
	assert.Equal(t, coords, d.Coordinates)
	assert.Equal(t, coords, loc.got)
	assert.Equal(t, weather.Fahrenheit, w.unit)
	assert.Equal(t, 68, d.Weather.Temperature)
	assert.Equal(t, "Toronto", d.Location.City)
	require.NotNil(t, d.Quote)
	assert.Equal(t, "t", d.Quote.Text)
	assert.Equal(t, "https://www.google.com/search?q=", d.SearchURL)
}

func TestBuildToleratesMissingPanels(t *testing.T) {
	svc, _ := newService(t, store.NewMemoryStore(), &fakeLocation{}, &fakeWeather{}, &fakeQuotes{}, nil)
	d := svc.Build(context.Background())

	assert.Nil(t, d.Coordinates)
	assert.Nil(t, d.Weather)
	assert.Nil(t, d.Location)
	assert.Nil(t, d.Quote)
	assert.Equal(t, "Good morning!", d.Greeting)
	assert.Equal(t, "14:30", d.Clock.Time)
}

func TestBuildRespectsToggles(t *testing.T) {
	q := &fakeQuotes{q: &quote.Quote{Text: "t"}}
	svc, st := newService(t, store.NewMemoryStore(), &fakeLocation{}, &fakeWeather{}, q, nil)

	_, err := st.ToggleQuote()
	require.NoError(t, err)
	_, err = st.ToggleSearch()
	require.NoError(t, err)

	d := svc.Build(context.Background())
	assert.Nil(t, d.Quote)
	assert.Zero(t, atomic.LoadInt32(&q.calls))
	assert.Empty(t, d.SearchURL)
}

func TestWarm(t *testing.T) {
	coords := &coordinates.Coordinates{Lat: 1, Lon: 2}

	loc := &fakeLocation{loc: &location.Location{City: "Toronto"}}
	svc, _ := newService(t, store.NewMemoryStore(), loc, &fakeWeather{}, nil, coords)
	require.NoError(t, svc.Warm(context.Background()))
	assert.Equal(t, coords, loc.got)

	svc, _ = newService(t, store.NewMemoryStore(), &fakeLocation{}, &fakeWeather{}, nil, coords)
	assert.ErrorIs(t, svc.Warm(context.Background()), ErrLocationUnavailable)
}
