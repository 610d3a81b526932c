package coordinates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/homie/internal/store"
)

type fakeLocator struct {
	coords Coordinates
	err    error
	calls  int
}

func (f *fakeLocator) Name() string { return "fake" }

func (f *fakeLocator) Locate(ctx context.Context) (Coordinates, error) {
	f.calls++
	return f.coords, f.err
}

// countingStore records writes on top of a MemoryStore.
type countingStore struct {
	*store.MemoryStore
	sets int
}

func (c *countingStore) Set(key, value string) error {
	c.sets++
	return c.MemoryStore.Set(key, value)
}

func TestCoordsRoundsAndPersists(t *testing.T) {
	st := &countingStore{MemoryStore: store.NewMemoryStore()}
	loc := &fakeLocator{coords: Coordinates{Lat: 43.6532261, Lon: -79.3831841}}
	svc := NewService(loc, st, zerolog.Nop())

	got := svc.Coords(context.Background())

	require.NotNil(t, got)
	assert.Equal(t, Coordinates{Lat: 43.65323, Lon: -79.38318}, *got)
	assert.Equal(t, 1, st.sets)

	raw, err := st.Get(StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"lat":43.65323,"lon":-79.38318}`, raw)
}

func TestCoordsSkipsWriteWhenUnchanged(t *testing.T) {
	st := &countingStore{MemoryStore: store.NewMemoryStore()}
	require.NoError(t, st.MemoryStore.Set(StorageKey, `{"lat":43.65323,"lon":-79.38318}`))

	loc := &fakeLocator{coords: Coordinates{Lat: 43.653226, Lon: -79.383184}}
	svc := NewService(loc, st, zerolog.Nop())

	got := svc.Coords(context.Background())

	require.NotNil(t, got)
	assert.Equal(t, Coordinates{Lat: 43.65323, Lon: -79.38318}, *got)
	assert.Zero(t, st.sets)
}

func TestCoordsUpdatesWhenChanged(t *testing.T) {
	st := store.NewMemoryStore()
	require.NoError(t, st.Set(StorageKey, `{"lat":43.65323,"lon":-79.38318}`))

	loc := &fakeLocator{coords: Coordinates{Lat: 40.712776, Lon: -74.005974}}
	svc := NewService(loc, st, zerolog.Nop())

	got := svc.Coords(context.Background())
	require.NotNil(t, got)

	last := svc.Last()
	require.NotNil(t, last)
	assert.Equal(t, Coordinates{Lat: 40.71278, Lon: -74.00597}, *last)
}

func TestCoordsNilOnLocatorError(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(&fakeLocator{err: errors.New("permission denied")}, st, zerolog.Nop())

	assert.Nil(t, svc.Coords(context.Background()))
	assert.Nil(t, svc.Last())
}

func TestCoordsNilWithoutLocator(t *testing.T) {
	svc := NewService(nil, store.NewMemoryStore(), zerolog.Nop())
	assert.Nil(t, svc.Coords(context.Background()))
}

func TestIPAPILocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"success","lat":43.6532,"lon":-79.3832}`))
	}))
	defer srv.Close()

	got, err := NewIPAPILocator(srv.Client(), srv.URL).Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Coordinates{Lat: 43.6532, Lon: -79.3832}, got)
}

func TestIPAPILocatorFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	_, err := NewIPAPILocator(srv.Client(), srv.URL).Locate(context.Background())
	assert.ErrorContains(t, err, "reserved range")
}

func TestReadFix(t *testing.T) {
	input := strings.Join([]string{
		"$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A",
		"$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47",
	}, "\r\n")

	got, err := readFix(strings.NewReader(input))
	require.NoError(t, err)
	assert.InDelta(t, 48.1173, got.Lat, 1e-4)
	assert.InDelta(t, 11.516667, got.Lon, 1e-4)
}

func TestReadFixWithoutGGA(t *testing.T) {
	_, err := readFix(strings.NewReader("$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A\r\n"))
	assert.ErrorIs(t, err, errNoFix)
}
