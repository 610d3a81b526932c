package settings

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/homie/internal/store"
	"github.com/i474232898/homie/internal/weather"
)

func get(t *testing.T, kv store.Store, key string) string {
	t.Helper()
	v, err := kv.Get(key)
	require.NoError(t, err)
	return v
}

func TestLoadDefaults(t *testing.T) {
	s := New(store.NewMemoryStore(), zerolog.Nop())
	assert.Equal(t, Defaults, s.Get())
	assert.Equal(t, weather.Celsius, s.Get().Unit)
	assert.Equal(t, Clock24, s.Get().ClockFormat)
	assert.True(t, s.Get().SearchToggled)
	assert.True(t, s.Get().QuoteToggled)
	assert.False(t, s.Get().DarkToggled)
}

func TestLoadStoredValues(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(KeyUnit, "fahrenheit"))
	require.NoError(t, kv.Set(KeyClockFormat, "12"))
	require.NoError(t, kv.Set(KeyUsername, "John"))
	require.NoError(t, kv.Set(KeyDarkToggled, "true"))
	require.NoError(t, kv.Set(KeySearchToggled, "false"))
	require.NoError(t, kv.Set(KeyQuoteToggled, "false"))

	got := New(kv, zerolog.Nop()).Get()
	assert.Equal(t, Settings{
		Unit:          weather.Fahrenheit,
		ClockFormat:   Clock12,
		Username:      "John",
		DarkToggled:   true,
		SearchToggled: false,
		QuoteToggled:  false,
	}, got)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	kv := store.NewMemoryStore()
	require.NoError(t, kv.Set(KeyUnit, "kelvin"))
	require.NoError(t, kv.Set(KeyClockFormat, "13"))
	require.NoError(t, kv.Set(KeyDarkToggled, "yes"))
	require.NoError(t, kv.Set(KeyQuoteToggled, "{"))

	assert.Equal(t, Defaults, New(kv, zerolog.Nop()).Get())
}

func TestSettersPersist(t *testing.T) {
	kv := store.NewMemoryStore()
	s := New(kv, zerolog.Nop())

	require.NoError(t, s.SetUnit(weather.Fahrenheit))
	require.NoError(t, s.SetClockFormat(Clock12))
	require.NoError(t, s.SetUsername("Ada"))
	require.NoError(t, s.SetDarkToggled(true))

	assert.Equal(t, "fahrenheit", get(t, kv, KeyUnit))
	assert.Equal(t, "12", get(t, kv, KeyClockFormat))
	assert.Equal(t, "Ada", get(t, kv, KeyUsername))
	assert.Equal(t, "true", get(t, kv, KeyDarkToggled))

	reloaded := New(kv, zerolog.Nop()).Get()
	assert.Equal(t, s.Get(), reloaded)
}

func TestSettersValidate(t *testing.T) {
	kv := store.NewMemoryStore()
	s := New(kv, zerolog.Nop())

	assert.ErrorIs(t, s.SetUnit("kelvin"), ErrInvalid)
	assert.ErrorIs(t, s.SetClockFormat("13"), ErrInvalid)

	assert.Equal(t, Defaults, s.Get())
	_, err := kv.Get(KeyUnit)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestToggles(t *testing.T) {
	kv := store.NewMemoryStore()
	s := New(kv, zerolog.Nop())

	on, err := s.ToggleSearch()
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, "false", get(t, kv, KeySearchToggled))

	on, err = s.ToggleSearch()
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, "true", get(t, kv, KeySearchToggled))

	on, err = s.ToggleQuote()
	require.NoError(t, err)
	assert.False(t, on)

	on, err = s.ToggleDark()
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, "true", get(t, kv, KeyDarkToggled))
}

func TestUpdateWritesOnlyChangedKeys(t *testing.T) {
	kv := store.NewMemoryStore()
	s := New(kv, zerolog.Nop())

	unit := weather.Celsius
	name := "Grace"
	got, err := s.Update(Patch{Unit: &unit, Username: &name})
	require.NoError(t, err)
	assert.Equal(t, "Grace", got.Username)

	assert.Equal(t, "Grace", get(t, kv, KeyUsername))
	_, err = kv.Get(KeyUnit)
	assert.ErrorIs(t, err, store.ErrNotFound, "unchanged unit is not written")
}

func TestUpdateRejectsWholePatch(t *testing.T) {
	s := New(store.NewMemoryStore(), zerolog.Nop())

	bad := ClockFormat("7")
	name := "Linus"
	_, err := s.Update(Patch{ClockFormat: &bad, Username: &name})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, "", s.Get().Username)
}

func TestOnChange(t *testing.T) {
	s := New(store.NewMemoryStore(), zerolog.Nop())

	var seen []Settings
	cancel := s.OnChange(func(cur Settings) { seen = append(seen, cur) })

	require.NoError(t, s.SetUnit(weather.Fahrenheit))
	require.NoError(t, s.SetUnit(weather.Fahrenheit))
	require.Len(t, seen, 1)
	assert.Equal(t, weather.Fahrenheit, seen[0].Unit)

	cancel()
	require.NoError(t, s.SetUnit(weather.Celsius))
	assert.Len(t, seen, 1)
}

func TestWatchAppliesOtherWriters(t *testing.T) {
	tabA := store.NewMemoryStore()
	tabB := tabA.Sibling()

	a := New(tabA, zerolog.Nop())
	b := New(tabB, zerolog.Nop())
	defer a.Watch(tabA)()
	defer b.Watch(tabB)()

	var changes int
	b.OnChange(func(Settings) { changes++ })

	require.NoError(t, a.SetUnit(weather.Fahrenheit))
	require.NoError(t, a.SetUsername("John"))
	_, err := a.ToggleQuote()
	require.NoError(t, err)

	got := b.Get()
	assert.Equal(t, weather.Fahrenheit, got.Unit)
	assert.Equal(t, "John", got.Username)
	assert.False(t, got.QuoteToggled)
	assert.Equal(t, 3, changes)
}

func TestWatchIgnoresUnrecognizedEvents(t *testing.T) {
	tabA := store.NewMemoryStore()
	tabB := tabA.Sibling()

	b := New(tabB, zerolog.Nop())
	defer b.Watch(tabB)()

	var changes int
	b.OnChange(func(Settings) { changes++ })

	require.NoError(t, tabA.Set(KeyUnit, "kelvin"))
	require.NoError(t, tabA.Set(KeyClockFormat, "13"))
	require.NoError(t, tabA.Set(KeyUsername, ""))
	require.NoError(t, tabA.Set(KeyDarkToggled, "maybe"))
	require.NoError(t, tabA.Set("someOtherKey", "x"))
	require.NoError(t, tabA.Remove(KeyUnit))

	assert.Equal(t, Defaults, b.Get())
	assert.Zero(t, changes)
}

func TestWatchDoesNotWriteBack(t *testing.T) {
	tabA := store.NewMemoryStore()
	tabB := tabA.Sibling()

	b := New(tabB, zerolog.Nop())
	defer b.Watch(tabB)()

	var echoed int
	defer tabA.Subscribe(func(store.Event) { echoed++ })()

	require.NoError(t, tabA.Set(KeyClockFormat, "12"))
	assert.Equal(t, Clock12, b.Get().ClockFormat)
	assert.Zero(t, echoed)
}
